// Package continuity repairs sentences and words that were split
// across page boundaries, borrowing minimal text from the neighboring
// page. An AI rewrite is attempted first; a deterministic heuristic
// path always stands behind it.
package continuity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hadv/yitam-admin-sub000/internal/models"
	"github.com/hadv/yitam-admin-sub000/internal/types"
)

type Config struct {
	// AIEnabled gates the AI rewrite path. When false the engine never
	// calls the generator, before any calls are attempted.
	AIEnabled bool
	// AITimeout bounds a single rewrite call. Default 30s.
	AITimeout time.Duration
	// MaxAIFailures is the consecutive timeout/error count that trips
	// the circuit breaker for the rest of the run. Default 5.
	MaxAIFailures int
}

type Engine struct {
	config    Config
	generator types.Generator
	breaker   *BreakerState
	drift     DriftValidator
}

func NewWithConfig(config Config, generator types.Generator) *Engine {
	if config.AITimeout == 0 {
		config.AITimeout = 30 * time.Second
	}
	if config.MaxAIFailures == 0 {
		config.MaxAIFailures = 5
	}
	return &Engine{
		config:    config,
		generator: generator,
		breaker:   NewBreaker(config.MaxAIFailures),
		drift:     EnglishWordRatioValidator{},
	}
}

// SetDriftValidator swaps the language-drift heuristic, which is
// language-pair-specific.
func (e *Engine) SetDriftValidator(v DriftValidator) {
	e.drift = v
}

// AIDisabled reports whether the rewrite path is currently off, either
// by configuration or by the circuit breaker.
func (e *Engine) AIDisabled() bool {
	return !e.config.AIEnabled || e.generator == nil || e.breaker.Disabled()
}

// Repair returns a new Page whose boundaries are healed against its
// immediate neighbors, plus a flag reporting whether borrowing
// occurred. Pages must be repaired strictly left to right: each page's
// repair reads its already-repaired left neighbor.
func (e *Engine) Repair(ctx context.Context, prev *models.Page, current models.Page, next *models.Page) (models.Page, bool) {
	content := current.Content
	if strings.TrimSpace(content) == "" {
		return current, false
	}

	startFrag := StartsFragmented(content)
	endFrag := EndsFragmented(content) || HasDanglingToken(content)

	// Common case: nothing fragmented, nothing to do.
	if !startFrag && !endFrag {
		return current, false
	}

	if !e.AIDisabled() {
		if rewritten, ok := e.tryAIRewrite(ctx, prev, content, next); ok {
			return models.Page{PageNumber: current.PageNumber, Content: rewritten}, true
		}
	}

	repaired, modified := e.manualRepair(content, prev, next, startFrag, endFrag)
	if repaired == "" {
		// Never return an empty page for non-empty input.
		return current, false
	}
	return models.Page{PageNumber: current.PageNumber, Content: repaired}, modified
}

// tryAIRewrite asks the generator for a boundary-corrected version of
// the page. Timeouts and call errors count toward the circuit breaker;
// quality rejections (empty, too short, translated) do not.
func (e *Engine) tryAIRewrite(ctx context.Context, prev *models.Page, content string, next *models.Page) (string, bool) {
	prevTail := ""
	if prev != nil {
		prevTail = charTail(prev.Content, 500)
	}
	nextHead := ""
	if next != nil {
		nextHead = charHead(next.Content, 500)
	}

	out, err := e.callGenerator(ctx, prevTail, content, nextHead)
	if err != nil {
		e.breaker.RecordFailure()
		return "", false
	}

	out = strings.TrimSpace(out)
	switch {
	case out == "":
		return "", false
	case len(out) < len(content)/2:
		return "", false
	case e.drift != nil && e.drift.Drifted(out):
		return "", false
	}

	e.breaker.RecordSuccess()
	return out, true
}

// callGenerator runs the rewrite with a hard wall-clock timeout. A
// response that arrives after the timeout fires lands in the buffered
// channel and is discarded, so a stale rewrite can never overwrite the
// deterministic result.
func (e *Engine) callGenerator(ctx context.Context, prevTail, content, nextHead string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.AITimeout)
	defer cancel()

	prompt := buildRewritePrompt(prevTail, content, nextHead)

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := e.generator.Generate(ctx, prompt, types.GenerateOptions{
			Temperature: 0.1,
			MaxTokens:   2000,
		})
		ch <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", context.DeadlineExceeded
		}
		return r.text, r.err
	}
}

func buildRewritePrompt(prevTail, content, nextHead string) string {
	var b strings.Builder
	b.WriteString("The CURRENT page below was split from its neighbors mid-sentence. ")
	b.WriteString("Rewrite ONLY the CURRENT page so that it begins and ends with complete sentences, ")
	b.WriteString("borrowing the minimum necessary text from the neighbors. ")
	b.WriteString("Keep the exact same language as the input. ")
	b.WriteString("Do not translate. Do not add bullets, numbering, headings, or any new formatting. ")
	b.WriteString("Output only the corrected CURRENT page content, nothing else.\n\n")
	if prevTail != "" {
		fmt.Fprintf(&b, "END OF PREVIOUS PAGE:\n%s\n\n", prevTail)
	}
	fmt.Fprintf(&b, "CURRENT PAGE:\n%s\n\n", content)
	if nextHead != "" {
		fmt.Fprintf(&b, "START OF NEXT PAGE:\n%s\n", nextHead)
	}
	return b.String()
}

// manualRepair is the deterministic path: borrow the smallest coherent
// piece of the neighboring page on each fragmented side.
func (e *Engine) manualRepair(content string, prev, next *models.Page, startFrag, endFrag bool) (string, bool) {
	modified := false

	if startFrag && prev != nil {
		if borrow := borrowTail(prev.Content); borrow != "" && !alreadyPrepended(content, borrow) {
			content = borrow + " " + content
			modified = true
		}
	}

	if endFrag && next != nil {
		borrow := borrowHead(next.Content)
		if borrow == "" && HasDanglingToken(content) {
			// Partial-word split the sentence checks missed.
			borrow = firstWords(next.Content, 4)
		}
		if borrow != "" && !alreadyAppended(content, borrow) {
			content = joinTail(content, borrow)
			modified = true
		}
	}

	return strings.TrimSpace(content), modified
}

// borrowTail picks text from the end of the previous page. A page that
// ends mid-sentence contributes its trailing incomplete fragment;
// otherwise the last full sentence, last paragraph, or a bounded
// character tail.
func borrowTail(prevContent string) string {
	prevContent = strings.TrimSpace(prevContent)
	if prevContent == "" {
		return ""
	}
	if !endsWithTerminal(prevContent) {
		if frag := afterLastTerminal(prevContent); frag != "" && len(frag) <= 400 {
			return frag
		}
		return charTail(prevContent, 150)
	}
	if s := lastSentence(prevContent); s != "" {
		return s
	}
	if p := lastParagraph(prevContent); p != "" && len(p) <= 400 {
		return p
	}
	return charTail(prevContent, 150)
}

// borrowHead picks text from the start of the next page, symmetric to
// borrowTail.
func borrowHead(nextContent string) string {
	nextContent = strings.TrimSpace(nextContent)
	if nextContent == "" {
		return ""
	}
	if s := firstSentence(nextContent); s != "" {
		return s
	}
	if p := firstParagraph(nextContent); p != "" && len(p) <= 400 {
		return p
	}
	return charHead(nextContent, 150)
}

// alreadyPrepended guards against duplicating text that a previous
// repair pass already borrowed across this boundary.
func alreadyPrepended(content, borrow string) bool {
	if strings.HasPrefix(content, borrow) {
		return true
	}
	head := charHead(content, 20)
	return head != "" && strings.Contains(borrow, head)
}

func alreadyAppended(content, borrow string) bool {
	if strings.HasSuffix(content, borrow) {
		return true
	}
	tail := charTail(content, 20)
	return tail != "" && strings.Contains(borrow, tail)
}

// joinTail appends borrowed text, gluing without a space when the page
// ends mid-word and the borrow continues it in lowercase.
func joinTail(content, borrow string) string {
	trimmed := strings.TrimRight(content, " \t\n")
	if gluesMidWord(trimmed, borrow) {
		return trimmed + borrow
	}
	return trimmed + " " + borrow
}

// gluesMidWord decides whether content's last token and the borrow are
// two halves of one split word: a short or partial-syllable tail
// followed by a lowercase consonant+vowel continuation.
func gluesMidWord(content, borrow string) bool {
	last := lastToken(content)
	bare := strings.TrimRight(last, terminalMarks+`"')]}”’`)
	if bare == "" || bare != last {
		return false
	}
	r := []rune(bare)
	if !unicode.IsLetter(r[len(r)-1]) {
		return false
	}
	if len(r) > 4 && !isPartialSyllable(bare) {
		return false
	}
	return startsMidWord([]rune(borrow))
}

// afterLastTerminal returns the text following the last sentence
// terminator, or the whole text when there is none.
func afterLastTerminal(text string) string {
	end := -1
	for i, r := range text {
		if strings.ContainsRune(terminalMarks, r) {
			end = i + len(string(r))
		}
	}
	if end < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[end:])
}

// lastSentence returns the final complete sentence of text, or "".
func lastSentence(text string) string {
	end := -1
	prev := -1
	for i, r := range text {
		if strings.ContainsRune(terminalMarks, r) {
			prev = end
			end = i + len(string(r))
		}
	}
	if end < 0 {
		return ""
	}
	start := 0
	if prev >= 0 {
		start = prev
	}
	return strings.TrimSpace(text[start:end])
}

// firstSentence returns text up to and including the first terminal
// mark, or "".
func firstSentence(text string) string {
	for i, r := range text {
		if strings.ContainsRune(terminalMarks, r) {
			return strings.TrimSpace(text[:i+len(string(r))])
		}
	}
	return ""
}

func lastParagraph(text string) string {
	parts := strings.Split(text, "\n\n")
	return strings.TrimSpace(parts[len(parts)-1])
}

func firstParagraph(text string) string {
	parts := strings.SplitN(text, "\n\n", 2)
	return strings.TrimSpace(parts[0])
}

// charTail returns up to n trailing characters, extended left to the
// nearest word boundary.
func charTail(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= n {
		return string(runes)
	}
	start := len(runes) - n
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return strings.TrimSpace(string(runes[start:]))
}

// charHead returns up to n leading characters, cut at a word boundary.
func charHead(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= n {
		return string(runes)
	}
	end := n
	for end > 0 && !unicode.IsSpace(runes[end]) {
		end--
	}
	if end == 0 {
		end = n
	}
	return strings.TrimSpace(string(runes[:end]))
}

func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
