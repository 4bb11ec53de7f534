package qdrantDB

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
)

// The answer cache is a second collection keyed by query vector. A lookup
// is a one-point nearest search; a hit requires similarity at or above
// CacheSimilarityCutoff.

func (db *ClientHolder) GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.CacheCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("cache query failed", "error", err)
		return "", false, fmt.Errorf("%w: cache lookup: %v", errs.ErrVectorIndexUnavailable, err)
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	if searchResult[0].Score < config.CacheSimilarityCutoff {
		loggr.Debug("cache miss", "bestScore", searchResult[0].Score)
		return "", false, nil
	}

	loggr.Info("semantic cache hit", "score", searchResult[0].Score)
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, id string, vector []float32, answer string) error {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.CacheCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("saving answer to cache failed", "error", err)
		return fmt.Errorf("%w: cache save: %v", errs.ErrVectorIndexUnavailable, err)
	}
	return nil
}
