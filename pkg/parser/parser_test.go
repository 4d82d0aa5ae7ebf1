package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadv/yitam-admin-sub000/pkg/parser"
)

func TestParseToPages_FormFeedPageBreaks(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	data := []byte("First page text.\fSecond page text.\fThird page text.")

	pages, err := p.ParseToPages(data, "text/plain")

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "Second page text.", pages[1].Content)
	assert.Equal(t, 3, pages[2].PageNumber)
}

func TestParseToPages_BlankPageKeepsNumbering(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	data := []byte("First page.\f   \fThird page.")

	pages, err := p.ParseToPages(data, "text/plain")

	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 3, pages[1].PageNumber, "blank pages are skipped but keep the numbering gap")
}

func TestParseToPages_FoldsLongText(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{PageSize: 100})

	paras := make([]string, 6)
	for i := range paras {
		paras[i] = strings.Repeat("words and more words. ", 3)
	}
	data := []byte(strings.Join(paras, "\n\n"))

	pages, err := p.ParseToPages(data, "text/plain")

	require.NoError(t, err)
	assert.Greater(t, len(pages), 1)
	for i, page := range pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.NotEmpty(t, page.Content)
	}
}

func TestParseToPages_HTMLPrefersMainContent(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	html := `<html><head><script>var x = 1;</script></head><body>
		<nav>Navigation junk</nav>
		<main><p>The real article text lives here.</p></main>
		<footer>Footer junk</footer>
	</body></html>`

	pages, err := p.ParseToPages([]byte(html), "text/html")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "The real article text lives here.")
	assert.NotContains(t, pages[0].Content, "Navigation junk")
	assert.NotContains(t, pages[0].Content, "Footer junk")
	assert.NotContains(t, pages[0].Content, "var x")
}

func TestParseToPages_HTMLFallsBackToBody(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	html := `<html><body><p>Plain body content only.</p></body></html>`

	pages, err := p.ParseToPages([]byte(html), "text/html; charset=utf-8")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "Plain body content only.")
}

func TestParseToPages_UnsupportedMimeType(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	_, err := p.ParseToPages([]byte("%PDF-1.4 ..."), "application/pdf")

	require.Error(t, err)
	var parseErr *parser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "application/pdf", parseErr.MimeType)
}

func TestParseToPages_EmptySource(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	_, err := p.ParseToPages([]byte("   \n "), "text/plain")

	var parseErr *parser.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseToPages_Markdown(t *testing.T) {
	p := parser.NewWithConfig(parser.ParserConfig{})

	pages, err := p.ParseToPages([]byte("# Title\n\nBody text."), "text/markdown")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "# Title")
}
