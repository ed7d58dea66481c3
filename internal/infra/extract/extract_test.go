package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"doc.txt", "doc.md", "DOC.TXT"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("proposal body"), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := New().Extract(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != "proposal body" {
			t.Errorf("%s: got %q", name, got)
		}
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := New().Extract("slides.pptx")
	if err == nil || !strings.Contains(err.Error(), "unsupported document type") {
		t.Fatalf("expected an unsupported-type error, got %v", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := New().Extract(filepath.Join(t.TempDir(), "gone.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestExtractBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Extract(path); err == nil {
		t.Fatal("expected an error for a malformed pdf")
	}
}
