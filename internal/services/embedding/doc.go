// Package embedding wraps an OpenAI-compatible text embeddings endpoint.
// Vectors are L2-normalized before being returned so cosine similarity
// reduces to a dot product downstream.
package embedding
