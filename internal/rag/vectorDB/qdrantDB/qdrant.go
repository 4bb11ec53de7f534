package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"deskrag/internal/config"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"
	"deskrag/pkg/logger_i"
)

var (
	logger   *logger_i.Logger
	instance *qdrant.Client
	once     sync.Once
)

// ClientHolder wraps the shared qdrant gRPC client.
type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQdrantClient returns the shared client, dialing on first use. Returns
// nil when qdrant is unreachable; callers surface ErrVectorIndexUnavailable.
func GetQdrantClient(ctx context.Context) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(ctx)
		if res != nil {
			instance = res
			go closeQdrant(ctx, instance)
		}
	})

	if instance == nil {
		return nil
	}
	return &ClientHolder{QObj: instance}
}

func newClient(ctx context.Context) *qdrant.Client {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     config.QdrantHost,
		Port:     config.QdrantGrpcPort,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate qdrant client", "error", err)
		return nil
	}

	holder := &ClientHolder{QObj: client}
	if err := holder.EnsureCollections(ctx); err != nil {
		logger.Error("could not prepare collections", "error", err)
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

// EnsureCollections makes the chunk and answer-cache collections exist with
// cosine distance at the configured dimension.
func (db *ClientHolder) EnsureCollections(ctx context.Context) error {
	for _, name := range []string{config.ChunkCollection, config.CacheCollection} {
		if err := createCollection(ctx, db.QObj, name); err != nil {
			return fmt.Errorf("%w: preparing collection %s: %v", errs.ErrVectorIndexUnavailable, name, err)
		}
	}
	return nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(config.EmbeddingDim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// UpsertChunks writes chunk vectors with Wait so a completed ingest is
// immediately searchable.
func (db *ClientHolder) UpsertChunks(ctx context.Context, records []docmodel.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.Id),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":      rec.Payload.DocId,
				"doc_name":    rec.Payload.DocName,
				"page_number": int64(rec.Payload.PageNumber),
				"chunk_index": int64(rec.Payload.ChunkIndex),
				"text":        rec.Payload.Text,
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.ChunkCollection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upsert failed: %v", errs.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Search returns the topK nearest chunks, optionally restricted to one
// document.
func (db *ClientHolder) Search(ctx context.Context, vector []float32, topK int, docID string) ([]docmodel.SearchHit, error) {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	query := &qdrant.QueryPoints{
		CollectionName: config.ChunkCollection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if docID != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		loggr.Error("error querying qdrant", "error", err)
		return nil, fmt.Errorf("%w: search failed: %v", errs.ErrVectorIndexUnavailable, err)
	}

	hits := make([]docmodel.SearchHit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, docmodel.SearchHit{
			Id:    hit.Id.GetUuid(),
			Score: hit.Score,
			Payload: docmodel.ChunkPayload{
				DocId:      hit.Payload["doc_id"].GetStringValue(),
				DocName:    hit.Payload["doc_name"].GetStringValue(),
				PageNumber: int(hit.Payload["page_number"].GetIntegerValue()),
				ChunkIndex: int(hit.Payload["chunk_index"].GetIntegerValue()),
				Text:       hit.Payload["text"].GetStringValue(),
			},
		})
	}
	loggr.Debug("vector search done", "hits", len(hits))
	return hits, nil
}

// DeleteByDocument drops every chunk vector for one document. The reported
// count is advisory; qdrant may resolve the filter asynchronously.
func (db *ClientHolder) DeleteByDocument(ctx context.Context, docID string) error {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	result, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: config.ChunkCollection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: delete failed for doc %s: %v", errs.ErrVectorIndexUnavailable, docID, err)
	}
	loggr.Info("deleted document vectors", "docId", docID, "operationStatus", result.GetStatus())
	return nil
}
