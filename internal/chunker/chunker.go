package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/medbot/backend/pkg/logger"
)

// Chunk is the atomic retrievable unit: a bounded, overlapping passage of a
// source document.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Size    int
}

type Chunker struct {
	targetSize int
	overlap    int
	fallback   *regexp.Regexp
}

func New(targetSize, overlap int) *Chunker {
	if targetSize <= 0 {
		targetSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{
		targetSize: targetSize,
		overlap:    overlap,
		fallback:   regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*\s*|[^.!?]+$`),
	}
}

// Chunk splits text into sentence-aligned chunks of roughly targetSize
// characters. Each chunk after the first starts with the tail words of the
// previous chunk so continuity survives the boundary. The size bound is a
// soft target: a single sentence longer than targetSize is kept whole.
func (c *Chunker) Chunk(text, source string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warn("Empty document, nothing to chunk", zap.String("source", source))
		return nil
	}

	sentences := c.splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var parts []string
	currentLen := 0

	seal := func() string {
		content := strings.TrimSpace(strings.Join(parts, " "))
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s_chunk_%d", source, len(chunks)),
			Content: content,
			Source:  source,
			Size:    len(content),
		})
		return content
	}

	for _, sentence := range sentences {
		if currentLen > 0 && currentLen+1+len(sentence) > c.targetSize {
			sealed := seal()
			overlap := c.overlapText(sealed)
			parts = parts[:0]
			if overlap != "" {
				parts = append(parts, overlap)
			}
			parts = append(parts, sentence)
			currentLen = len(overlap) + 1 + len(sentence)
			continue
		}
		parts = append(parts, sentence)
		if currentLen == 0 {
			currentLen = len(sentence)
		} else {
			currentLen += 1 + len(sentence)
		}
	}

	if len(parts) > 0 {
		seal()
	}

	logger.Debug("Document chunked",
		zap.String("source", source),
		zap.Int("chunks", len(chunks)),
	)

	return chunks
}

// overlapText returns the last overlap/10 words of a sealed chunk, the
// fragment carried into the next chunk.
func (c *Chunker) overlapText(content string) string {
	count := c.overlap / 10
	if count <= 0 {
		return ""
	}
	words := strings.Fields(content)
	if len(words) <= count {
		return content
	}
	return strings.Join(words[len(words)-count:], " ")
}

func (c *Chunker) splitSentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)

	var raw []string
	if err != nil {
		logger.Warn("Sentence segmentation failed, using regex fallback", zap.Error(err))
		raw = c.fallback.FindAllString(text, -1)
	} else {
		for _, s := range doc.Sentences() {
			raw = append(raw, s.Text)
		}
	}

	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Stats summarizes a chunking run, logged after ingestion.
type Stats struct {
	TotalChunks     int
	TotalCharacters int
	AverageSize     float64
	MinSize         int
	MaxSize         int
	Sources         []string
}

func Statistics(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks: len(chunks),
		MinSize:     chunks[0].Size,
	}
	seen := make(map[string]bool)

	for _, ch := range chunks {
		stats.TotalCharacters += ch.Size
		if ch.Size < stats.MinSize {
			stats.MinSize = ch.Size
		}
		if ch.Size > stats.MaxSize {
			stats.MaxSize = ch.Size
		}
		if !seen[ch.Source] {
			seen[ch.Source] = true
			stats.Sources = append(stats.Sources, ch.Source)
		}
	}

	stats.AverageSize = float64(stats.TotalCharacters) / float64(len(chunks))
	return stats
}
