package segmenter

import (
	"regexp"
	"strings"
	"unicode"
)

// ItemKind classifies a raw paragraph of page text.
type ItemKind int

const (
	KindParagraph ItemKind = iota
	KindHeading
	KindListItem
)

func (k ItemKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list-item"
	default:
		return "paragraph"
	}
}

// Item is the transient unit the segmenter accumulates into chunks.
// It is never persisted.
type Item struct {
	Kind ItemKind
	Text string
}

// Rule is a named classification predicate. Rules are evaluated in
// order; the first match wins and the default is paragraph. Keeping
// them as data makes the rule set testable without touching the
// segmentation control flow.
type Rule struct {
	Name string
	Kind ItemKind
	Test func(text string) bool
}

var (
	markdownHeadingRe = regexp.MustCompile(`^#{1,6}\s+\S`)
	numberedSectionRe = regexp.MustCompile(`^\d+(\.\d+)+\.?\s+\S`)
	numberedListRe    = regexp.MustCompile(`^\d+[.)]\s+`)
	bulletListRe      = regexp.MustCompile(`^[-*+•–]\s+`)
	romanListRe       = regexp.MustCompile(`^(?i)[ivx]{1,5}[.)]\s+`)
)

// Rules holds the ordered classification rule set.
var Rules = []Rule{
	{
		Name: "markdown-heading",
		Kind: KindHeading,
		Test: func(text string) bool {
			return markdownHeadingRe.MatchString(text)
		},
	},
	{
		Name: "numbered-section-heading",
		Kind: KindHeading,
		Test: func(text string) bool {
			// "1.2.3 Title" style: multi-level number, single line,
			// no terminal punctuation.
			return numberedSectionRe.MatchString(text) &&
				!strings.Contains(text, "\n") &&
				!endsWithTerminal(text)
		},
	},
	{
		Name: "all-caps-heading",
		Kind: KindHeading,
		Test: func(text string) bool {
			if strings.Contains(text, "\n") || len(text) > 120 || endsWithTerminal(text) {
				return false
			}
			hasLetter := false
			for _, r := range text {
				if unicode.IsLetter(r) {
					hasLetter = true
					if unicode.IsLower(r) {
						return false
					}
				}
			}
			return hasLetter
		},
	},
	{
		Name: "numbered-list-item",
		Kind: KindListItem,
		Test: func(text string) bool {
			return numberedListRe.MatchString(text)
		},
	},
	{
		Name: "bullet-list-item",
		Kind: KindListItem,
		Test: func(text string) bool {
			return bulletListRe.MatchString(text)
		},
	},
	{
		Name: "roman-list-item",
		Kind: KindListItem,
		Test: func(text string) bool {
			return romanListRe.MatchString(text)
		},
	},
}

// Classify maps a raw paragraph to its kind using the ordered rules.
func Classify(text string) ItemKind {
	trimmed := strings.TrimSpace(text)
	for _, rule := range Rules {
		if rule.Test(trimmed) {
			return rule.Kind
		}
	}
	return KindParagraph
}

// terminalRunes are sentence-ending marks, including the ideographic
// full stop used in some source material.
const terminalRunes = ".!?:;。"

func endsWithTerminal(text string) bool {
	trimmed := strings.TrimRight(text, " \t\"')]}”’")
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return strings.ContainsRune(terminalRunes, runes[len(runes)-1])
}
