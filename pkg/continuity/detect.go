package continuity

import (
	"strings"
	"unicode"
)

// Boundary fragment detection. A page is a repair candidate when its
// start or end looks like a sentence or word that was cut by the page
// break. The checks are tuned for Vietnamese-language source material
// but degrade gracefully for other Latin-script text.

const terminalMarks = ".!?:;。"

// vowels covers plain Latin vowels plus the Vietnamese diacritic forms.
const vowels = "aeiouyàáảãạăằắẳẵặâầấẩẫậèéẻẽẹêềếểễệìíỉĩịòóỏõọôồốổỗộơờớởỡợùúủũụưừứửữựỳýỷỹỵ"

// continuationWords are conjunctions and particles that normally
// continue a sentence rather than open one.
var continuationWords = map[string]bool{
	// Vietnamese
	"và": true, "nhưng": true, "hoặc": true, "là": true, "của": true,
	"với": true, "để": true, "thì": true, "mà": true, "nên": true,
	"còn": true, "cũng": true, "như": true, "theo": true, "về": true,
	"từ": true, "đến": true, "trong": true, "khi": true, "nếu": true,
	"vì": true, "bởi": true, "cho": true, "rằng": true,
	// English, for mixed material
	"and": true, "but": true, "or": true, "which": true, "that": true,
	"with": true, "from": true, "because": true,
}

// partialEndings are consonant clusters a Vietnamese syllable can end
// a fragment with when the break fell mid-word.
var partialEndings = []string{"ng", "nh", "ch", "th", "tr", "ph", "kh", "gh", "ngh", "qu", "gi"}

// StartsFragmented reports whether text begins mid-sentence or mid-word.
func StartsFragmented(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	first := runes[0]

	// Lowercase (including diacritic) openings continue a sentence.
	if unicode.IsLower(first) {
		return true
	}
	// Punctuation that cannot open a page of prose.
	if strings.ContainsRune(",;:)]}»…", first) {
		return true
	}

	firstWord := strings.ToLower(firstToken(trimmed))
	if continuationWords[firstWord] {
		return true
	}

	return startsMidWord(runes)
}

// startsMidWord flags a leading consonant+vowel pattern typical of the
// second half of a split word, e.g. "tinuously".
func startsMidWord(runes []rune) bool {
	if len(runes) < 2 {
		return false
	}
	first := unicode.ToLower(runes[0])
	second := unicode.ToLower(runes[1])
	if !unicode.IsLetter(first) || strings.ContainsRune(vowels, first) {
		return false
	}
	return strings.ContainsRune(vowels, second) && unicode.IsLower(runes[0])
}

// EndsFragmented reports whether text stops mid-sentence or mid-word.
func EndsFragmented(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if !endsWithTerminal(trimmed) {
		return true
	}

	last := lastToken(trimmed)
	bare := strings.TrimRight(last, terminalMarks+`"')]}”’`)
	return isPartialSyllable(bare) && !endsWithTerminal(last)
}

// HasDanglingToken reports a residual very short last token with no
// trailing punctuation, the signature of a word split the sentence
// checks miss.
func HasDanglingToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	last := lastToken(trimmed)
	if len([]rune(last)) > 2 {
		return false
	}
	r := []rune(last)
	return unicode.IsLetter(r[len(r)-1])
}

// isPartialSyllable flags tokens that end in a consonant cluster with
// no vowel to carry it, or a bare consonant run.
func isPartialSyllable(token string) bool {
	token = strings.ToLower(token)
	if token == "" {
		return false
	}
	hasVowel := false
	for _, r := range token {
		if strings.ContainsRune(vowels, r) {
			hasVowel = true
			break
		}
	}
	if !hasVowel {
		return true
	}
	for _, ending := range partialEndings {
		if token == ending {
			return true
		}
	}
	return false
}

func endsWithTerminal(text string) bool {
	trimmed := strings.TrimRight(text, ` "')]}”’`)
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return strings.ContainsRune(terminalMarks, runes[len(runes)-1])
}

func firstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func lastToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
