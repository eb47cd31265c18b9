package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// ErrExtraction indicates the uploaded bytes could not be turned into text.
// Extraction failure is fatal for the document's analysis; every other
// collaborator failure only degrades a report field.
var ErrExtraction = errors.New("text extraction failed")

// Document is an uploaded policy document after text extraction.
// Immutable once created.
type Document struct {
	ID   string
	Name string
	Text string
}

// Extractor converts raw uploaded bytes into plain text.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var pdfMagic = []byte("%PDF-")

// Extract builds a Document from uploaded bytes. PDF payloads are detected by
// header; anything else is treated as UTF-8 text. When name is empty a random
// identifier is assigned.
func (e *Extractor) Extract(data []byte, name string) (Document, error) {
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrExtraction)
	}

	var text string
	if bytes.HasPrefix(data, pdfMagic) {
		extracted, err := pdfText(data)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		text = extracted
	} else {
		if !utf8.Valid(data) {
			return Document{}, fmt.Errorf("%w: input is neither PDF nor valid UTF-8 text", ErrExtraction)
		}
		text = string(data)
	}

	id := name
	if id == "" {
		id = uuid.New().String()
	}
	id = strings.TrimSuffix(id, ".pdf")

	return Document{ID: id, Name: name, Text: text}, nil
}

// pdfText concatenates the plain text of every page in order.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		sb.WriteString(content)
	}
	return sb.String(), nil
}
