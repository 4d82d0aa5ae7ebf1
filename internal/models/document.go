package models

import (
	"fmt"
	"sort"
)

// Page is one page of parsed source material, 1-indexed. Content is
// rewritten by continuity repair before segmentation; repair returns a
// new Page value rather than mutating the parsed one.
type Page struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// Chunk is a bounded slice of a page's text prior to embedding.
type Chunk struct {
	ID           string   `json:"id"`
	DocumentName string   `json:"document_name"`
	Content      string   `json:"content"`
	SourceFile   string   `json:"source_file"`
	Domains      []string `json:"domains"`
}

// DocumentChunk is the final record handed to the vector store. Its
// JSON shape is the wire contract with that dependency.
type DocumentChunk struct {
	Chunk
	Embedding       []float32 `json:"embedding"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	EnhancedContent string    `json:"enhanced_content,omitempty"`
}

// ScoredChunk is a search result with its similarity score.
type ScoredChunk struct {
	DocumentChunk
	Score float32 `json:"score"`
}

// PageChunkID builds the deterministic ID for chunk i of a page.
// Determinism is what makes duplicate detection and delete-by-prefix work.
func PageChunkID(documentName string, pageNumber, index int) string {
	return fmt.Sprintf("%s_page%03d_chunk%d", documentName, pageNumber, index)
}

// StreamChunkID builds the deterministic ID for chunk i of a streamed
// source such as a transcript.
func StreamChunkID(idPrefix string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", idPrefix, index)
}

// NormalizeDomains dedupes and sorts a domain tag set so every chunk of
// a page carries an identical slice.
func NormalizeDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
