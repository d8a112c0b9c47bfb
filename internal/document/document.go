package document

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	KindPDF  = "pdf"
	KindText = "txt"

	// DefaultMaxSize caps uploaded documents.
	DefaultMaxSize = 20 * 1024 * 1024
)

var (
	ErrUnsupportedType = errors.New("unsupported document type: only PDF and TXT are accepted")
	ErrTooLarge        = errors.New("document exceeds maximum size")
	ErrNoText          = errors.New("no text content found in document")
	ErrInvalidText     = errors.New("text document is not valid UTF-8")
)

// Document is an uploaded file reduced to its text.
type Document struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Pages int    `json:"pages"`
	Text  string `json:"-"`
}

// Extractor turns uploaded PDF and TXT files into plain text.
type Extractor struct {
	MaxSize int64
}

func NewExtractor(maxSize int64) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Extractor{MaxSize: maxSize}
}

// Kind resolves the document kind from the declared content type, falling back to the file extension.
func Kind(name, contentType string) (string, error) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "application/pdf":
			return KindPDF, nil
		case "text/plain":
			return KindText, nil
		}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt":
		return KindText, nil
	}

	return "", ErrUnsupportedType
}

// Extract returns the text of the uploaded file.
func (e *Extractor) Extract(name, contentType string, data []byte) (*Document, error) {
	if int64(len(data)) > e.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), e.MaxSize)
	}

	kind, err := Kind(name, contentType)
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: name, Kind: kind}

	switch kind {
	case KindPDF:
		pages, text, err := extractPDF(data)
		if err != nil {
			return nil, err
		}
		doc.Pages = pages
		doc.Text = text
	case KindText:
		if !utf8.Valid(data) {
			return nil, ErrInvalidText
		}
		doc.Pages = 1
		doc.Text = string(data)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrNoText
	}

	return doc, nil
}

// PageCount validates the PDF structure and returns its page count.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}

	return ctx.PageCount, nil
}

func extractPDF(data []byte) (int, string, error) {
	pageCount, err := PageCount(data)
	if err != nil {
		return 0, "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep going; a single broken page should not hide the rest.
			continue
		}

		builder.WriteString(text)
	}

	return pageCount, builder.String(), nil
}
