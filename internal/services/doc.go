// Package services holds clients for external collaborators (LLM chat
// completions, text embeddings) and the shared error taxonomy used to
// classify their failures.
package services
