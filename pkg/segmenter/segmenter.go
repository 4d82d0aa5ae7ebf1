// Package segmenter partitions a page's continuity-repaired text into a
// bounded number of chunks, respecting heading, paragraph, and list
// structure instead of cutting at arbitrary character offsets.
package segmenter

import (
	"regexp"
	"strings"
)

type Config struct {
	// MaxChunks caps how many chunks a page may produce.
	MaxChunks int
	// TargetChunkSize is the soft size budget per chunk, in characters.
	TargetChunkSize int
	// OverlapSize is the target carry-over between adjacent chunks.
	OverlapSize int
	// PreserveHeadings re-attaches a recent heading to the chunk that
	// holds its first body item.
	PreserveHeadings bool
}

type Segmenter struct {
	config Config
}

func NewWithConfig(config Config) *Segmenter {
	if config.MaxChunks == 0 {
		config.MaxChunks = 5
	}
	if config.TargetChunkSize == 0 {
		config.TargetChunkSize = 1000
	}
	if config.OverlapSize == 0 {
		config.OverlapSize = 200
	}
	return &Segmenter{config: config}
}

var (
	blankLineRe    = regexp.MustCompile(`\n[ \t]*\n`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// Segment splits pageText into at most MaxChunks structure-aware
// chunks. Empty input yields no chunks.
func (s *Segmenter) Segment(pageText string) []string {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}

	items := s.classifyParagraphs(pageText)
	if len(items) == 0 {
		return nil
	}

	var done [][]Item
	var current []Item

	for _, item := range items {
		if len(current) > 0 &&
			chunkLen(current)+joinLen(item) > s.config.TargetChunkSize &&
			len(done) < s.config.MaxChunks-1 {
			done = append(done, current)
			current = s.openChunk(current, item)
			continue
		}
		current = append(current, item)
	}
	if len(current) > 0 {
		done = append(done, current)
	}

	chunks := make([]string, 0, len(done))
	for _, group := range done {
		text := renderChunk(group)
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks
}

// classifyParagraphs splits on blank lines and classifies each raw
// paragraph with the ordered rule set.
func (s *Segmenter) classifyParagraphs(pageText string) []Item {
	raw := blankLineRe.Split(pageText, -1)
	items := make([]Item, 0, len(raw))
	for _, p := range raw {
		text := strings.TrimSpace(p)
		if text == "" {
			continue
		}
		items = append(items, Item{Kind: Classify(text), Text: text})
	}
	return items
}

// openChunk decides what the new chunk starts with when the triggering
// item did not fit in the outgoing chunk. Headings attached to their
// first body item always beat strict overlap-size minimization; an
// orphaned heading is the failure mode this component exists to avoid.
func (s *Segmenter) openChunk(outgoing []Item, trigger Item) []Item {
	// Never overlap into a new heading.
	if trigger.Kind == KindHeading {
		return []Item{trigger}
	}

	if s.config.PreserveHeadings {
		if h, ok := recentHeading(outgoing); ok {
			budget := (s.config.TargetChunkSize * 7) / 10
			if len(h.Text)+joinLen(trigger) <= budget {
				return []Item{h, trigger}
			}
		}
	}

	if overlap, ok := s.overlapText(outgoing); ok {
		return []Item{{Kind: KindParagraph, Text: overlap}, trigger}
	}
	return []Item{trigger}
}

// recentHeading finds a heading within the last 2 items of the
// outgoing chunk.
func recentHeading(items []Item) (Item, bool) {
	for i := len(items) - 1; i >= 0 && i >= len(items)-2; i-- {
		if items[i].Kind == KindHeading {
			return items[i], true
		}
	}
	return Item{}, false
}

// overlapText computes the carry-over for a fresh chunk, trying in
// order: the outgoing chunk's last whole paragraph if it is small
// enough, then the text after the last sentence terminator inside the
// outgoing chunk's tail, then nothing.
func (s *Segmenter) overlapText(outgoing []Item) (string, bool) {
	if len(outgoing) == 0 {
		return "", false
	}

	last := outgoing[len(outgoing)-1]
	if last.Kind == KindParagraph && len(last.Text) <= s.config.OverlapSize*3/2 {
		return last.Text, true
	}

	rendered := renderChunk(outgoing)
	window := s.config.OverlapSize * 2
	tail := rendered
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}
	if idx := lastTerminalEnd(tail); idx >= 0 && idx < len(tail) {
		after := strings.TrimSpace(tail[idx:])
		if after != "" {
			return after, true
		}
	}
	return "", false
}

// lastTerminalEnd returns the byte offset just past the last sentence
// terminator, or -1 when none is present.
func lastTerminalEnd(text string) int {
	idx := -1
	for i, r := range text {
		if strings.ContainsRune(terminalRunes, r) {
			idx = i + len(string(r))
		}
	}
	return idx
}

// renderChunk joins items with blank lines, except list items which
// stay on adjacent lines, then normalizes whitespace.
func renderChunk(items []Item) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			if item.Kind == KindListItem {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(item.Text)
	}
	text := excessNewlines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(text)
}

// chunkLen is the rendered length of the accumulated items.
func chunkLen(items []Item) int {
	n := 0
	for i, item := range items {
		if i > 0 {
			if item.Kind == KindListItem {
				n++
			} else {
				n += 2
			}
		}
		n += len(item.Text)
	}
	return n
}

// joinLen is the length an item adds when appended to a non-empty chunk.
func joinLen(item Item) int {
	if item.Kind == KindListItem {
		return len(item.Text) + 1
	}
	return len(item.Text) + 2
}

// SplitPlain is the boundary-agnostic path used when structural
// segmentation is disabled: fixed character windows broken at word
// boundaries with simple character overlap.
func (s *Segmenter) SplitPlain(pageText string) []string {
	text := strings.TrimSpace(pageText)
	if text == "" {
		return nil
	}

	var chunks []string
	size := s.config.TargetChunkSize
	for len(text) > 0 && len(chunks) < s.config.MaxChunks {
		if len(text) <= size || len(chunks) == s.config.MaxChunks-1 {
			chunks = append(chunks, strings.TrimSpace(text))
			break
		}
		cut := size
		for cut > 0 && text[cut] != ' ' && text[cut] != '\n' {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))

		next := cut - s.config.OverlapSize
		if next < 0 {
			next = 0
		}
		for next < cut && text[next] != ' ' && text[next] != '\n' {
			next++
		}
		text = strings.TrimSpace(text[next:])
	}
	return chunks
}
