package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rsc.io/pdf"
)

// Extractor turns input documents into plain text for the prompt builder.
// Plain-text formats are read as-is; PDFs go through rsc.io/pdf.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md", ".text":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported document type %q (expected .pdf, .txt or .md)", filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for n := 1; n <= doc.NumPage(); n++ {
		p := doc.Page(n)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		parts := make([]string, 0, len(content.Text))
		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			parts = append(parts, text.S)
		}
		if len(parts) > 0 {
			pages = append(pages, strings.Join(parts, " "))
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
