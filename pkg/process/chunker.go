package process

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
)

// Chunk is one retrieval-sized passage of a page
type Chunk struct {
	Content          string   `json:"content"`           // Passage text, prefixed with its parent headings
	HeadingHierarchy []string `json:"heading_hierarchy"` // Headings found in the passage, outermost first
	TokenCount       int      `json:"token_count"`       // Tokens, or runes when no tokenizer is loaded
}

// ChunkerConfig holds configuration for the chunker.
type ChunkerConfig struct {
	MaxChunkSize int // Maximum chunk size in tokens (triggers recursive split if exceeded)
	ChunkOverlap int // Overlap between chunks in tokens (for recursive fallback)
}

// DefaultChunkerConfig mirrors the preview defaults
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxChunkSize: 512,
		ChunkOverlap: 50,
	}
}

// ChunkerConfigFrom converts the preview settings
func ChunkerConfigFrom(cfg config.PreviewConfig) ChunkerConfig {
	out := DefaultChunkerConfig()
	if cfg.MaxChunkTokens > 0 {
		out.MaxChunkSize = cfg.MaxChunkTokens
	}
	if cfg.ChunkOverlap > 0 && cfg.ChunkOverlap < out.MaxChunkSize {
		out.ChunkOverlap = cfg.ChunkOverlap
	} else if out.ChunkOverlap >= out.MaxChunkSize {
		out.ChunkOverlap = out.MaxChunkSize / 10
	}
	return out
}

// ChunkMarkdown splits markdown the way retrieval engines cut pages into passages:
// first by headers, keeping the heading hierarchy, then recursively by characters
// for any section that still exceeds MaxChunkSize.
func ChunkMarkdown(markdown string, cfg ChunkerConfig) ([]Chunk, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}

	recursiveSplitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.MaxChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithLenFunc(TokenLength),
	)

	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithHeadingHierarchy(true),
		textsplitter.WithChunkSize(cfg.MaxChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSecondSplitter(recursiveSplitter),
		textsplitter.WithLenFunc(TokenLength),
	)

	parts, err := splitter.SplitText(markdown)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Content:          part,
			HeadingHierarchy: headingTexts(ExtractHeadings([]byte(part))),
			TokenCount:       TokenLength(part),
		})
	}
	return chunks, nil
}
