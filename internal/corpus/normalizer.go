package corpus

import (
	"html"
	"regexp"
	"strings"
)

// The build and query paths must tokenise identically, so both go through
// Normalize + Tokenize. No state beyond the compiled patterns.
var (
	punctuationPattern = regexp.MustCompile(`[^\w\s-]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize unescapes HTML entities, lowercases the text, replaces
// punctuation and hyphens with spaces, and collapses whitespace. The
// punctuation pattern's \w matches ASCII word characters only, so
// non-ASCII letters are stripped rather than kept as term text.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = strings.ToLower(text)
	text = punctuationPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "-", " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize splits normalised text on whitespace, dropping empty tokens.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}
