package embedding

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/hadv/yitam-admin-sub000/internal/types"
)

// DefaultPayloadLimit is the embedding service's per-call character
// ceiling.
const DefaultPayloadLimit = 10000

// maxParallelPieces bounds the fan-out when an oversized text is
// embedded piece by piece.
const maxParallelPieces = 4

// Splitter keeps text within the embedding payload limit: under the
// limit it is a pass-through; over it, the text is split at paragraph,
// then sentence, then word-group boundaries — never mid-word — and the
// per-piece vectors are averaged element-wise into one. Averaging
// treats all pieces as equally representative regardless of length.
type Splitter struct {
	embedder types.Embedder
	limit    int
}

func NewSplitter(embedder types.Embedder, limit int) *Splitter {
	if limit <= 0 {
		limit = DefaultPayloadLimit
	}
	return &Splitter{embedder: embedder, limit: limit}
}

var paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n`)

// Split returns pieces each at most limit characters, packed greedily.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.limit {
		return []string{text}
	}

	var units []string
	for _, para := range paragraphBreakRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= s.limit {
			units = append(units, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if len(sent) <= s.limit {
				units = append(units, sent)
				continue
			}
			units = append(units, wordGroups(sent, s.limit)...)
		}
	}
	return pack(units, s.limit)
}

// Embed returns the text's vector, issuing one call per piece when the
// text exceeds the payload limit and averaging the results.
func (s *Splitter) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) <= s.limit {
		return s.embedder.EmbedText(ctx, text)
	}

	pieces := s.Split(text)
	if len(pieces) == 0 {
		return s.embedder.EmbedText(ctx, text)
	}

	vectors := make([][]float32, len(pieces))
	errs := make([]error, len(pieces))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallelPieces)
	for i, piece := range pieces {
		wg.Add(1)
		go func(i int, piece string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			vectors[i], errs[i] = s.embedder.EmbedText(ctx, piece)
		}(i, piece)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return meanVectors(vectors), nil
}

func (s *Splitter) Dimension() int {
	return s.embedder.Dimension()
}

// pack joins consecutive units greedily while staying under limit.
func pack(units []string, limit int) []string {
	var pieces []string
	var current strings.Builder

	for _, unit := range units {
		added := len(unit)
		if current.Len() > 0 {
			added++ // joining space
		}
		if current.Len() > 0 && current.Len()+added > limit {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(unit)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// splitSentences cuts text after sentence terminators followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if strings.ContainsRune(".!?。", r) {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				sentence := strings.TrimSpace(current.String())
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}
	return sentences
}

// wordGroups packs whitespace-bounded words up to limit without ever
// splitting a word.
func wordGroups(text string, limit int) []string {
	var groups []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		added := len(word)
		if current.Len() > 0 {
			added++
		}
		if current.Len() > 0 && current.Len()+added > limit {
			groups = append(groups, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		groups = append(groups, current.String())
	}
	return groups
}

// meanVectors is the element-wise mean of equal-dimensionality vectors.
func meanVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	mean := make([]float32, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean
}
