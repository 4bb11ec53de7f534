package vectorDB

import (
	"context"

	"deskrag/internal/domain/docmodel"
)

// Index is the vector store behind retrieval: chunk vectors for search plus
// a second collection used as a semantic answer cache.
type Index interface {
	// EnsureCollections creates the chunk and cache collections when absent.
	EnsureCollections(ctx context.Context) error

	UpsertChunks(ctx context.Context, records []docmodel.VectorRecord) error
	Search(ctx context.Context, vector []float32, topK int, docID string) ([]docmodel.SearchHit, error)
	DeleteByDocument(ctx context.Context, docID string) error

	GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string) error
}
