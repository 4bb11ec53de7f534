// Package errs defines the error taxonomy shared across the RAG pipeline.
// Components wrap these sentinels with fmt.Errorf("%w: ...") so the
// orchestration layer can branch with errors.Is without string matching.
package errs

import "errors"

var (
	// ErrInvalidParameter marks bad input or configuration rejected before
	// any work begins (chunking parameters, missing credentials).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrVectorIndexUnavailable marks any non-success from the vector index
	// service. Fatal for destructive multi-store operations.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrLLMUnavailable marks exhaustion of every configured model for the
	// requested tier and provider.
	ErrLLMUnavailable = errors.New("llm unavailable")

	// ErrEmbeddingCountMismatch marks a broken internal invariant: the
	// embedder must return exactly one vector per input text, each at the
	// width it advertises.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrSessionNotFound marks memory operations against an unknown session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDocumentNotFound marks lookups or deletes of unknown documents.
	ErrDocumentNotFound = errors.New("document not found")
)
