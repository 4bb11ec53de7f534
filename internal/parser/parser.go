// Package parser turns uploaded bytes into ordered plain-text pages. The
// RAG core consumes only the page strings produced here.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"deskrag/pkg/logger_i"
)

var logger = logger_i.NewLogger("Parser")

type ParsedPage struct {
	PageNumber int
	Text       string
}

func Sha256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ParseFile dispatches on the filename extension and returns the mime type
// together with the ordered pages.
func ParseFile(filename string, data []byte) (string, []ParsedPage, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		pages, err := parsePDF(data)
		return "application/pdf", pages, err
	case ".txt":
		return "text/plain", parsePlainText(data), nil
	case ".md":
		return "text/markdown", parsePlainText(data), nil
	case ".docx", ".rtf", ".odt":
		pages, err := parseWithCat(filename, data)
		return "application/octet-stream", pages, err
	default:
		return "", nil, fmt.Errorf("unsupported file type: %s", filename)
	}
}

func parsePDF(data []byte) ([]ParsedPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []ParsedPage
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, ParsedPage{PageNumber: i})
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// A broken page keeps its slot so numbering stays contiguous.
			logger.Error("page extraction failed", "page", i, "error", err)
			content = ""
		}
		pages = append(pages, ParsedPage{PageNumber: i, Text: strings.TrimSpace(content)})
	}
	return pages, nil
}

func parsePlainText(data []byte) []ParsedPage {
	return []ParsedPage{{PageNumber: 1, Text: strings.TrimSpace(string(data))}}
}

// parseWithCat extracts docx/rtf/odt text. cat reads from a path, so the
// bytes take a detour through a temp file.
func parseWithCat(filename string, data []byte) ([]ParsedPage, error) {
	tmp, err := os.CreateTemp("", "deskrag-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("temp write: %w", err)
	}
	tmp.Close()

	text, err := cat.File(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}
	return []ParsedPage{{PageNumber: 1, Text: strings.TrimSpace(text)}}, nil
}

// protectExtract guards GetPlainText, which can hang on malformed content
// streams.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(10 * time.Second):
		return "", errors.New("page extraction timeout")
	}
}
