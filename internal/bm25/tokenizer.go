package bm25

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric sequences (including underscores for initial split).
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// DefaultCodeStopWords contains programming keywords too common to rank on.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// minTokenLength filters single-character fragments out of the index.
const minTokenLength = 2

var defaultStopSet = BuildStopWordMap(DefaultCodeStopWords)

// TokenizeCode splits text into tokens with code-aware rules: camelCase,
// PascalCase, and snake_case identifiers are split into their parts, tokens
// are lowercased, short fragments and code stop words are dropped. Positions
// are sequential over the surviving tokens and every token carries the
// default importance weight of 1.0; callers can re-weight before indexing.
func TokenizeCode(text string) []Token {
	var tokens []Token
	pos := 0
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, part := range SplitCodeToken(word) {
			lower := strings.ToLower(part)
			if len(lower) < minTokenLength {
				continue
			}
			if _, isStop := defaultStopSet[lower]; isStop {
				continue
			}
			tokens = append(tokens, Token{
				Text:             lower,
				Position:         pos,
				ImportanceWeight: 1.0,
			})
			pos++
		}
	}
	return tokens
}

// SplitCodeToken splits camelCase and snake_case identifiers.
func SplitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}
	return SplitCamelCase(token)
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// Split if previous is lowercase OR next is lowercase (handles acronyms)
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
