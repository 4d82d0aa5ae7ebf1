// Package parser turns raw source bytes into ordered pages. Heavy
// format support (PDF layout, OCR) lives in external collaborators;
// this package handles the text-bearing formats the pipeline ingests
// directly.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hadv/yitam-admin-sub000/internal/models"
)

// ParseError means the source is unreadable or corrupt. It is fatal
// for the document and propagates to the caller; there is no retry.
type ParseError struct {
	MimeType string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s source: %s", e.MimeType, e.Reason)
}

type ParserConfig struct {
	// PageSize folds page-break-free text into pages of roughly this
	// many characters. Default 3000.
	PageSize int
}

type Parser struct {
	config ParserConfig
}

func NewWithConfig(config ParserConfig) *Parser {
	if config.PageSize == 0 {
		config.PageSize = 3000
	}
	return &Parser{config: config}
}

// ParseToPages produces 1-indexed pages ordered by page number. Page
// number gaps are possible for sources that carry their own numbering.
func (p *Parser) ParseToPages(data []byte, mimeType string) ([]models.Page, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{MimeType: mimeType, Reason: "empty source"}
	}

	base := mimeType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = strings.TrimSpace(base[:idx])
	}

	switch base {
	case "text/plain", "text/markdown", "":
		return p.parseText(string(data)), nil
	case "text/html", "application/xhtml+xml":
		return p.parseHTML(data, base)
	default:
		return nil, &ParseError{MimeType: mimeType, Reason: "unsupported media type"}
	}
}

// parseText splits on form-feed page breaks when present, otherwise
// folds the text into fixed-size pages at paragraph boundaries.
func (p *Parser) parseText(text string) []models.Page {
	var rawPages []string
	if strings.Contains(text, "\f") {
		rawPages = strings.Split(text, "\f")
	} else {
		rawPages = foldIntoPages(text, p.config.PageSize)
	}

	pages := make([]models.Page, 0, len(rawPages))
	number := 0
	for _, raw := range rawPages {
		number++
		content := strings.TrimSpace(raw)
		if content == "" {
			continue
		}
		pages = append(pages, models.Page{PageNumber: number, Content: content})
	}
	return pages
}

// parseHTML extracts the main content area, preferring semantic
// containers over the whole body.
func (p *Parser) parseHTML(data []byte, mimeType string) ([]models.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{MimeType: mimeType, Reason: err.Error()}
	}

	doc.Find("script, style, nav, footer, header").Remove()

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	content = cleanContent(content)
	if content == "" {
		return nil, &ParseError{MimeType: mimeType, Reason: "no text content"}
	}
	return p.parseText(content), nil
}

// cleanContent normalizes whitespace line by line, keeping paragraph
// breaks intact.
func cleanContent(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				b.WriteString("\n\n")
				blank = true
			}
			continue
		}
		if !blank {
			b.WriteString("\n")
		}
		b.WriteString(line)
		blank = false
	}
	return strings.TrimSpace(b.String())
}

// foldIntoPages cuts text into roughly pageSize pieces, breaking at
// paragraph boundaries where possible.
func foldIntoPages(text string, pageSize int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= pageSize {
		return []string{text}
	}

	var pages []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		added := len(para)
		if current.Len() > 0 {
			added += 2
		}
		if current.Len() > 0 && current.Len()+added > pageSize {
			pages = append(pages, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		pages = append(pages, current.String())
	}
	return pages
}
