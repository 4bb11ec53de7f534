package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"

	"github.com/google/uuid"
)

// DocumentInfo is a document row plus its chunk count, for listings.
type DocumentInfo struct {
	docmodel.Document
	ChunkCount int `json:"chunk_count"`
}

// InsertDocumentBundle persists a document with all its pages and chunks in
// one transaction. Either everything lands or nothing does.
func (s *Store) InsertDocumentBundle(ctx context.Context, doc docmodel.Document, pages []docmodel.Page, chunks []docmodel.Chunk) error {
	now := formatTime(time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, name, mime_type, sha256, size_bytes, page_count, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.Id, doc.Name, doc.MimeType, doc.Sha256, doc.SizeBytes, doc.PageCount, formatTime(doc.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}

		for _, p := range pages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pages (id, doc_id, page_number, text, created_at) VALUES (?, ?, ?, ?, ?)`,
				p.Id, p.DocId, p.PageNumber, p.Text, now,
			); err != nil {
				return fmt.Errorf("inserting page %d: %w", p.PageNumber, err)
			}
		}

		for _, c := range chunks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunks (id, doc_id, page_number, chunk_index, start_char, end_char, text, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				c.Id, c.DocId, c.PageNumber, c.ChunkIndex, c.StartChar, c.EndChar, c.Text, now,
			); err != nil {
				return fmt.Errorf("inserting chunk p%d/%d: %w", c.PageNumber, c.ChunkIndex, err)
			}
		}
		return nil
	})
}

func (s *Store) GetDocumentBySha(ctx context.Context, sha256 string) (docmodel.Document, bool, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, name, mime_type, sha256, size_bytes, page_count, created_at
		 FROM documents WHERE sha256 = ?`, sha256))
}

func (s *Store) GetDocument(ctx context.Context, id string) (docmodel.Document, bool, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, name, mime_type, sha256, size_bytes, page_count, created_at
		 FROM documents WHERE id = ?`, id))
}

func (s *Store) scanDocument(row *sql.Row) (docmodel.Document, bool, error) {
	var d docmodel.Document
	var createdAt string
	err := row.Scan(&d.Id, &d.Name, &d.MimeType, &d.Sha256, &d.SizeBytes, &d.PageCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return docmodel.Document{}, false, nil
	}
	if err != nil {
		return docmodel.Document{}, false, err
	}
	d.CreatedAt = parseTime(createdAt)
	return d, true, nil
}

func (s *Store) CountChunks(ctx context.Context, docID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE doc_id = ?`, docID).Scan(&count)
	return count, err
}

func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.mime_type, d.sha256, d.size_bytes, d.page_count, d.created_at,
		        (SELECT COUNT(*) FROM chunks c WHERE c.doc_id = d.id) AS chunk_count
		 FROM documents d ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		var createdAt string
		if err := rows.Scan(&d.Id, &d.Name, &d.MimeType, &d.Sha256, &d.SizeBytes, &d.PageCount, &createdAt, &d.ChunkCount); err != nil {
			return nil, err
		}
		d.CreatedAt = parseTime(createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListChunks returns a document's chunks ordered by page then index. A page
// filter narrows to one page; limit is clamped to MaxMessageLimit.
func (s *Store) ListChunks(ctx context.Context, docID string, page *int, limit int) ([]docmodel.Chunk, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > config.MaxMessageLimit {
		limit = config.MaxMessageLimit
	}

	query := `SELECT id, doc_id, page_number, chunk_index, start_char, end_char, text
	          FROM chunks WHERE doc_id = ?`
	args := []any{docID}
	if page != nil {
		query += ` AND page_number = ?`
		args = append(args, *page)
	}
	query += ` ORDER BY page_number ASC, chunk_index ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []docmodel.Chunk
	for rows.Next() {
		var c docmodel.Chunk
		if err := rows.Scan(&c.Id, &c.DocId, &c.PageNumber, &c.ChunkIndex, &c.StartChar, &c.EndChar, &c.Text); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes the document row; pages and chunks cascade.
// Callers must have deleted the vector records first.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", errs.ErrDocumentNotFound, id)
		}
		return nil
	})
}

// NewId returns a fresh uuid string for rows created by the store's callers.
func NewId() string {
	return uuid.New().String()
}
