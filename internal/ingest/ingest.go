package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/medbot/backend/pkg/logger"
)

// Document is one source file's extracted plain text, ready for chunking.
type Document struct {
	Source string
	Text   string
}

// Source yields documents for knowledge-base construction.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
}

// DirSource reads a flat directory of medical reference files. Plain text
// and markdown pass through as-is; HTML is reduced to visible text.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Documents reads every supported file in the directory. A file that cannot
// be read or parsed is skipped with a warning so one bad file does not sink
// the whole ingestion run.
func (s *DirSource) Documents(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		path := filepath.Join(s.Dir, name)

		var text string
		switch ext {
		case ".txt", ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("Skipping unreadable document", zap.String("file", name), zap.Error(err))
				continue
			}
			text = string(data)
		case ".html", ".htm":
			extracted, err := extractHTML(path)
			if err != nil {
				logger.Warn("Skipping unparseable HTML document", zap.String("file", name), zap.Error(err))
				continue
			}
			text = extracted
		default:
			continue
		}

		text = normalizeWhitespace(text)
		if text == "" {
			logger.Warn("Skipping empty document", zap.String("file", name))
			continue
		}

		docs = append(docs, Document{Source: name, Text: text})
	}

	logger.Info("Documents loaded",
		zap.String("dir", s.Dir),
		zap.Int("count", len(docs)),
	)

	return docs, nil
}

func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	var parts []string
	doc.Find("h1, h2, h3, h4, p, li, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return strings.Join(parts, "\n"), nil
}

// normalizeWhitespace collapses runs of blank space so chunk sizes reflect
// content, not formatting.
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
