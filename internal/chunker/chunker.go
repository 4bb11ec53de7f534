// Package chunker splits normalized page text into overlapping fixed-size
// windows with stable offsets. Offsets are rune positions into the
// normalized text, so a chunk's span always reproduces its text.
package chunker

import (
	"fmt"
	"strings"

	"deskrag/internal/domain/errs"
)

type Chunk struct {
	ChunkIndex int
	StartChar  int
	EndChar    int
	Text       string
}

// Normalize replaces NUL bytes with spaces, collapses whitespace runs to a
// single space and trims the ends.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	return strings.Join(strings.Fields(text), " ")
}

// Split produces the ordered chunk sequence for one page of text. The
// window advances by chunkSize-overlap; windows that trim to empty are
// skipped without consuming an index, so surviving indices are contiguous
// from 0. Deterministic for identical input and parameters.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be > 0", errs.ErrInvalidParameter)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be >= 0 and < chunk_size", errs.ErrInvalidParameter)
	}

	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []Chunk
	index := 0

	for start := 0; start < n; start += step {
		end := start + chunkSize
		if end > n {
			end = n
		}

		trimmed := strings.TrimSpace(string(runes[start:end]))
		if trimmed != "" {
			chunks = append(chunks, Chunk{
				ChunkIndex: index,
				StartChar:  start,
				EndChar:    end,
				Text:       trimmed,
			})
			index++
		}

		// The window that reaches the end of text is the last one.
		if end >= n {
			break
		}
	}

	return chunks, nil
}
