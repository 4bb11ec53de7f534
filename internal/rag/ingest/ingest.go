package ingest

import (
	"context"
	"fmt"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/data/store"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/chunker"
	"deskrag/internal/parser"
	"deskrag/internal/rag/embedding"
	"deskrag/internal/rag/vectorDB"
	"deskrag/pkg/logger_i"
)

const embedBatchSize = 100

// DocStore is the slice of the relational store ingestion needs.
type DocStore interface {
	GetDocumentBySha(ctx context.Context, sha256 string) (docmodel.Document, bool, error)
	GetDocument(ctx context.Context, id string) (docmodel.Document, bool, error)
	CountChunks(ctx context.Context, docID string) (int, error)
	InsertDocumentBundle(ctx context.Context, doc docmodel.Document, pages []docmodel.Page, chunks []docmodel.Chunk) error
	DeleteDocument(ctx context.Context, id string) error
}

// Coordinator runs the ingestion pipeline: parse, chunk, persist, embed,
// index. It also owns the inverse operation, removing a document from both
// stores.
type Coordinator struct {
	store    DocStore
	embedder embedding.Embedder
	index    vectorDB.Index
	logger   *logger_i.Logger
}

func NewCoordinator(docStore DocStore, embedder embedding.Embedder, index vectorDB.Index) *Coordinator {
	return &Coordinator{
		store:    docStore,
		embedder: embedder,
		index:    index,
		logger:   logger_i.NewLogger("Ingest"),
	}
}

// Ingest processes one uploaded file end to end. A file whose sha256 is
// already known short-circuits to the existing document, with Deduped set.
func (c *Coordinator) Ingest(ctx context.Context, filename string, data []byte) (jobmodel.IngestResult, error) {
	loggr := c.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	if filename == "" {
		return jobmodel.IngestResult{}, fmt.Errorf("%w: filename missing", errs.ErrInvalidParameter)
	}
	if len(data) == 0 {
		return jobmodel.IngestResult{}, fmt.Errorf("%w: empty file", errs.ErrInvalidParameter)
	}

	sha := parser.Sha256Bytes(data)
	if existing, found, err := c.store.GetDocumentBySha(ctx, sha); err != nil {
		return jobmodel.IngestResult{}, err
	} else if found {
		chunkCount, err := c.store.CountChunks(ctx, existing.Id)
		if err != nil {
			return jobmodel.IngestResult{}, err
		}
		loggr.Info("duplicate upload, reusing document", "docId", existing.Id, "sha256", sha)
		return resultFor(existing, chunkCount, true), nil
	}

	mimeType, pages, err := parser.ParseFile(filename, data)
	if err != nil {
		return jobmodel.IngestResult{}, fmt.Errorf("%w: %v", errs.ErrInvalidParameter, err)
	}

	doc := docmodel.Document{
		Id:        store.NewId(),
		Name:      filename,
		MimeType:  mimeType,
		Sha256:    sha,
		SizeBytes: int64(len(data)),
		PageCount: len(pages),
		CreatedAt: time.Now().UTC(),
	}

	pageRows, chunkRows, err := buildRows(doc, pages)
	if err != nil {
		return jobmodel.IngestResult{}, err
	}

	if err := c.store.InsertDocumentBundle(ctx, doc, pageRows, chunkRows); err != nil {
		return jobmodel.IngestResult{}, err
	}

	if err := c.indexChunks(ctx, doc, chunkRows); err != nil {
		// Roll back the relational rows so a retry of the same file is not
		// deduped against a half-ingested document.
		if delErr := c.store.DeleteDocument(ctx, doc.Id); delErr != nil {
			loggr.Error("rollback after index failure also failed", "docId", doc.Id, "error", delErr)
		}
		return jobmodel.IngestResult{}, err
	}

	loggr.Info("ingested and indexed document",
		"docId", doc.Id, "name", doc.Name, "pages", doc.PageCount, "chunks", len(chunkRows), "sizeBytes", doc.SizeBytes)
	return resultFor(doc, len(chunkRows), false), nil
}

// buildRows normalizes and chunks every page with the default window.
func buildRows(doc docmodel.Document, pages []parser.ParsedPage) ([]docmodel.Page, []docmodel.Chunk, error) {
	var pageRows []docmodel.Page
	var chunkRows []docmodel.Chunk

	for _, p := range pages {
		text := chunker.Normalize(p.Text)
		pageRows = append(pageRows, docmodel.Page{
			Id:         store.NewId(),
			DocId:      doc.Id,
			PageNumber: p.PageNumber,
			Text:       text,
		})

		chunks, err := chunker.Split(text, config.DefaultChunkSize, config.DefaultOverlap)
		if err != nil {
			return nil, nil, err
		}
		for _, ch := range chunks {
			chunkRows = append(chunkRows, docmodel.Chunk{
				Id:         store.NewId(),
				DocId:      doc.Id,
				PageNumber: p.PageNumber,
				ChunkIndex: ch.ChunkIndex,
				StartChar:  ch.StartChar,
				EndChar:    ch.EndChar,
				Text:       ch.Text,
			})
		}
	}
	return pageRows, chunkRows, nil
}

// indexChunks embeds in batches and upserts the vectors, record id equal to
// chunk id.
func (c *Coordinator) indexChunks(ctx context.Context, doc docmodel.Document, chunks []docmodel.Chunk) error {
	if err := c.index.EnsureCollections(ctx); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, ch := range batch {
			texts[j] = ch.Text
		}

		vectors, err := c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: batch of %d got %d vectors", errs.ErrEmbeddingCountMismatch, len(batch), len(vectors))
		}
		// The index collections are created at the embedder's width; a model
		// swap without a matching EMBEDDING_DIM must fail here, not in qdrant.
		for j := range vectors {
			if len(vectors[j]) != c.embedder.Dim() {
				return fmt.Errorf("%w: vector is %d wide, embedder reports %d",
					errs.ErrEmbeddingCountMismatch, len(vectors[j]), c.embedder.Dim())
			}
		}

		records := make([]docmodel.VectorRecord, len(batch))
		for j, ch := range batch {
			records[j] = docmodel.VectorRecord{
				Id:     ch.Id,
				Vector: vectors[j],
				Payload: docmodel.ChunkPayload{
					DocId:      doc.Id,
					DocName:    doc.Name,
					PageNumber: ch.PageNumber,
					ChunkIndex: ch.ChunkIndex,
					Text:       ch.Text,
				},
			}
		}
		if err := c.index.UpsertChunks(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a document everywhere. Vectors go first: if the index is
// unreachable the relational rows stay put, so nothing is lost silently.
func (c *Coordinator) Remove(ctx context.Context, docID string) error {
	loggr := c.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	_, found, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", errs.ErrDocumentNotFound, docID)
	}

	if err := c.index.EnsureCollections(ctx); err != nil {
		return err
	}
	if err := c.index.DeleteByDocument(ctx, docID); err != nil {
		loggr.Error("vector delete failed, aborting document delete", "docId", docID, "error", err)
		return err
	}

	if err := c.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	loggr.Info("deleted document", "docId", docID)
	return nil
}

func resultFor(doc docmodel.Document, chunkCount int, deduped bool) jobmodel.IngestResult {
	return jobmodel.IngestResult{
		DocId:      doc.Id,
		Name:       doc.Name,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Sha256:     doc.Sha256,
		PageCount:  doc.PageCount,
		ChunkCount: chunkCount,
		Deduped:    deduped,
	}
}
