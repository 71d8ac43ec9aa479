// Package llm wraps an OpenAI-compatible chat completion API. The search and
// script packages consume it through small interfaces so tests can substitute
// fakes; this client is the production implementation.
package llm
