package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDocumentsReadsSupportedTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "Plain text about hypertension.")
	writeFile(t, dir, "guide.md", "# Heading\nMarkdown about diabetes.")
	writeFile(t, dir, "page.html", `<html><head><style>p{}</style></head><body><script>var x;</script><p>HTML about asthma.</p></body></html>`)
	writeFile(t, dir, "image.png", "not text")

	docs, err := NewDirSource(dir).Documents(context.Background())
	if err != nil {
		t.Fatalf("documents failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}

	bySource := map[string]string{}
	for _, d := range docs {
		bySource[d.Source] = d.Text
	}

	if !strings.Contains(bySource["notes.txt"], "hypertension") {
		t.Error("txt content lost")
	}
	if !strings.Contains(bySource["guide.md"], "diabetes") {
		t.Error("md content lost")
	}
	html := bySource["page.html"]
	if !strings.Contains(html, "HTML about asthma.") {
		t.Errorf("html text not extracted: %q", html)
	}
	if strings.Contains(html, "var x") || strings.Contains(html, "p{}") {
		t.Errorf("script/style leaked into extracted text: %q", html)
	}
}

func TestDocumentsSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "   \n\t ")
	writeFile(t, dir, "real.txt", "Content about arthritis.")

	docs, err := NewDirSource(dir).Documents(context.Background())
	if err != nil {
		t.Fatalf("documents failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "real.txt" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestDocumentsNormalizesWhitespace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "messy.txt", "Line one.\n\n\n   Line   two.\t\tEnd.")

	docs, err := NewDirSource(dir).Documents(context.Background())
	if err != nil {
		t.Fatalf("documents failed: %v", err)
	}
	if docs[0].Text != "Line one. Line two. End." {
		t.Errorf("whitespace not normalized: %q", docs[0].Text)
	}
}

func TestDocumentsMissingDirectory(t *testing.T) {
	_, err := NewDirSource("/nonexistent/path").Documents(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestDocumentsIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "top.txt", "Top level content about cardiology.")

	docs, err := NewDirSource(dir).Documents(context.Background())
	if err != nil {
		t.Fatalf("documents failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d documents, want 1", len(docs))
	}
}
