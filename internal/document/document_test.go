package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/spigell/insurance-advisor/internal/document/pdftest"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		file        string
		contentType string
		expect      string
		wantErr     bool
	}{
		{name: "pdf by content type", file: "upload", contentType: "application/pdf", expect: KindPDF},
		{name: "text with charset", file: "upload", contentType: "text/plain; charset=utf-8", expect: KindText},
		{name: "pdf by extension", file: "policy.PDF", contentType: "application/octet-stream", expect: KindPDF},
		{name: "text by extension", file: "notes.txt", contentType: "", expect: KindText},
		{name: "unsupported", file: "scan.docx", contentType: "application/msword", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Kind(tt.file, tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Fatalf("expected ErrUnsupportedType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	e := NewExtractor(0)

	doc, err := e.Extract("policy.txt", "text/plain", []byte("Sum insured: 5,00,000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Kind != KindText || doc.Pages != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Text != "Sum insured: 5,00,000" {
		t.Fatalf("unexpected text: %q", doc.Text)
	}
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		file   string
		data   []byte
		limit  int64
		expect error
	}{
		{name: "too large", file: "a.txt", data: []byte(strings.Repeat("a", 11)), limit: 10, expect: ErrTooLarge},
		{name: "empty text", file: "a.txt", data: []byte("  \n\t"), expect: ErrNoText},
		{name: "invalid utf8", file: "a.txt", data: []byte{0xff, 0xfe, 0xfd}, expect: ErrInvalidText},
		{name: "unsupported", file: "a.csv", data: []byte("x"), expect: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewExtractor(tt.limit).Extract(tt.file, "", tt.data)
			if !errors.Is(err, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, err)
			}
		})
	}
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	_, err := NewExtractor(0).Extract("policy.pdf", "application/pdf", []byte("%PDF-1.4 definitely not a pdf"))
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestExtractPDF(t *testing.T) {
	data := pdftest.OnePage("Sum insured five lakh")

	pages, err := PageCount(data)
	if err != nil {
		t.Fatalf("unexpected page count error: %v", err)
	}
	if pages != 1 {
		t.Fatalf("expected 1 page, got %d", pages)
	}

	doc, err := NewExtractor(0).Extract("policy.pdf", "application/pdf", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != KindPDF || doc.Pages != 1 || doc.Name != "policy.pdf" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if !strings.Contains(doc.Text, "Sum insured five lakh") {
		t.Fatalf("expected page text, got %q", doc.Text)
	}
}

func TestExtractPDFByExtension(t *testing.T) {
	doc, err := NewExtractor(0).Extract("scan.pdf", "application/octet-stream", pdftest.OnePage("Policy number 42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "Policy number 42") {
		t.Fatalf("expected page text, got %q", doc.Text)
	}
}
