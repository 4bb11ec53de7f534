package docmodel

import "time"

// Document is immutable once ingested. Sha256 is unique and drives dedupe.
type Document struct {
	Id        string    `json:"doc_id"`
	Name      string    `json:"doc_name"`
	MimeType  string    `json:"mime_type"`
	Sha256    string    `json:"sha256"`
	SizeBytes int64     `json:"size_bytes"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Page holds the normalized text of one document page. Page numbers are
// 1-based and contiguous.
type Page struct {
	Id         string `json:"id"`
	DocId      string `json:"doc_id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Chunk is a half-open character span [StartChar, EndChar) into its page's
// normalized text. Index is zero-based and contiguous within a page.
type Chunk struct {
	Id         string `json:"id"`
	DocId      string `json:"doc_id"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
}

// ChunkPayload is the denormalized payload stored next to each vector so a
// search hit is self-contained without a relational join.
type ChunkPayload struct {
	DocId      string `json:"doc_id"`
	DocName    string `json:"doc_name"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// VectorRecord pairs a chunk id with its embedding and payload. Record ids
// equal chunk ids so the two stores stay in lockstep.
type VectorRecord struct {
	Id      string
	Vector  []float32
	Payload ChunkPayload
}

// SearchHit is one ranked result from the vector index.
type SearchHit struct {
	Id      string
	Score   float32
	Payload ChunkPayload
}

// Citation is the derived, non-persisted view over a retrieved chunk that
// ships with each answer.
type Citation struct {
	ChunkId    string  `json:"chunk_id"`
	Score      float32 `json:"score"`
	DocId      string  `json:"doc_id"`
	DocName    string  `json:"doc_name"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Quote      string  `json:"quote"`
}
