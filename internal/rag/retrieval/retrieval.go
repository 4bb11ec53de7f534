package retrieval

import (
	"context"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/rag/embedding"
	"deskrag/internal/rag/prompt"
	"deskrag/internal/rag/rerank"
	"deskrag/internal/rag/vectorDB"
	"deskrag/pkg/logger_i"
)

// Timings breaks out where retrieval time went, in milliseconds.
type Timings struct {
	EmbedMs  int64 `json:"embed_ms"`
	QdrantMs int64 `json:"qdrant_ms"`
}

// Result is a finished retrieval: reranked hits truncated to topK, the best
// similarity score among them, and the query vector for reuse by the
// semantic cache.
type Result struct {
	Hits        []docmodel.SearchHit
	BestScore   float64
	QueryVector []float32
	Timings     Timings
}

// Orchestrator runs embed -> vector search -> optional rerank -> truncate.
type Orchestrator struct {
	embedder embedding.Embedder
	index    vectorDB.Index
	reranker rerank.Reranker
	logger   *logger_i.Logger
}

// New wires an orchestrator. A nil reranker keeps vector-similarity order.
func New(embedder embedding.Embedder, index vectorDB.Index, reranker rerank.Reranker) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		index:    index,
		reranker: reranker,
		logger:   logger_i.NewLogger("Retrieval"),
	}
}

// Run retrieves context for a question. When reranking is on, it over-fetches
// rerank candidates so the cross-encoder has a wider pool to reorder before
// the cut to topK. The min-score filter is applied later, at mapping time.
func (o *Orchestrator) Run(ctx context.Context, question string, topK int, docID string) (Result, error) {
	loggr := o.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	embedStart := time.Now()
	vectors, err := o.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return Result{}, err
	}
	embedMs := time.Since(embedStart).Milliseconds()
	queryVector := vectors[0]

	fetchN := topK
	if o.reranker != nil {
		fetchN = config.DefaultRerankCandidates
		if fetchN < topK {
			fetchN = topK
		}
	}

	searchStart := time.Now()
	if err := o.index.EnsureCollections(ctx); err != nil {
		return Result{}, err
	}
	hits, err := o.index.Search(ctx, queryVector, fetchN, docID)
	if err != nil {
		return Result{}, err
	}
	qdrantMs := time.Since(searchStart).Milliseconds()

	if o.reranker != nil && len(hits) > 1 {
		hits = o.rerankHits(ctx, loggr, question, hits)
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}

	var best float64
	for _, hit := range hits {
		if float64(hit.Score) > best {
			best = float64(hit.Score)
		}
	}

	loggr.Debug("retrieval done", "hits", len(hits), "bestScore", best)
	return Result{
		Hits:        hits,
		BestScore:   best,
		QueryVector: queryVector,
		Timings:     Timings{EmbedMs: embedMs, QdrantMs: qdrantMs},
	}, nil
}

// rerankHits reorders by cross-encoder relevance but keeps each hit's vector
// similarity score, since min-score filtering is calibrated on cosine space.
// A rerank failure degrades to similarity order instead of failing the query.
func (o *Orchestrator) rerankHits(ctx context.Context, loggr *logger_i.Logger, question string, hits []docmodel.SearchHit) []docmodel.SearchHit {
	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = hit.Payload.Text
	}

	scores, err := o.reranker.Rerank(ctx, question, passages)
	if err != nil {
		loggr.Warn("rerank failed, keeping similarity order", "error", err)
		return hits
	}

	reordered := make([]docmodel.SearchHit, 0, len(hits))
	for _, idx := range rerank.Order(scores) {
		reordered = append(reordered, hits[idx])
	}
	return reordered
}

// RetrievedChunk is the retrieve endpoint's view of one hit.
type RetrievedChunk struct {
	ChunkId    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	DocId      string  `json:"doc_id"`
	DocName    string  `json:"doc_name"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
}

// MapForRetrieve drops hits under minScore and flattens the rest.
func MapForRetrieve(hits []docmodel.SearchHit, minScore float64) []RetrievedChunk {
	out := make([]RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if float64(hit.Score) < minScore {
			continue
		}
		out = append(out, RetrievedChunk{
			ChunkId:    hit.Id,
			Score:      float64(hit.Score),
			DocId:      hit.Payload.DocId,
			DocName:    hit.Payload.DocName,
			PageNumber: hit.Payload.PageNumber,
			ChunkIndex: hit.Payload.ChunkIndex,
			Text:       hit.Payload.Text,
		})
	}
	return out
}

// MapForChat turns passing hits into citations plus tagged prompt context.
// Quotes are capped so responses stay bounded.
func MapForChat(hits []docmodel.SearchHit, minScore float64) ([]docmodel.Citation, []prompt.ContextChunk) {
	var citations []docmodel.Citation
	var contextChunks []prompt.ContextChunk

	for _, hit := range hits {
		if float64(hit.Score) < minScore {
			continue
		}

		tag := prompt.Tag(hit.Payload.DocName, hit.Payload.PageNumber, hit.Payload.ChunkIndex)
		contextChunks = append(contextChunks, prompt.ContextChunk{Tag: tag, Text: hit.Payload.Text})

		quote := hit.Payload.Text
		if runes := []rune(quote); len(runes) > config.QuoteMaxChars {
			quote = string(runes[:config.QuoteMaxChars])
		}
		citations = append(citations, docmodel.Citation{
			ChunkId:    hit.Id,
			Score:      hit.Score,
			DocId:      hit.Payload.DocId,
			DocName:    hit.Payload.DocName,
			PageNumber: hit.Payload.PageNumber,
			ChunkIndex: hit.Payload.ChunkIndex,
			Quote:      quote,
		})
	}
	return citations, contextChunks
}
