package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(tokens []Token) []string {
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	return texts
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"simple", []string{"simple"}},
		{"PascalCase", []string{"Pascal", "Case"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCamelCase(tt.input))
		})
	}
}

func TestSplitCodeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"mixedCase_withSnake", []string{"mixed", "Case", "with", "Snake"}},
		{"__dunder__", []string{"dunder"}},
		{"plain", []string{"plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCodeToken(tt.input))
		})
	}
}

func TestTokenizeCode_SplitsIdentifiers(t *testing.T) {
	tokens := TokenizeCode("func getUserById(userID string)")

	texts := tokenTexts(tokens)
	assert.Contains(t, texts, "get")
	assert.Contains(t, texts, "user")
	assert.Contains(t, texts, "by")
	assert.Contains(t, texts, "id")
	assert.Contains(t, texts, "string")

	// "func" is a code stop word.
	assert.NotContains(t, texts, "func")
}

func TestTokenizeCode_DropsShortFragmentsAndStopWords(t *testing.T) {
	tokens := TokenizeCode("if x := f(a, b); x { return err }")

	texts := tokenTexts(tokens)
	assert.NotContains(t, texts, "if")
	assert.NotContains(t, texts, "return")
	assert.NotContains(t, texts, "err")
	assert.NotContains(t, texts, "x")
	assert.NotContains(t, texts, "a")
}

func TestTokenizeCode_PositionsSequential(t *testing.T) {
	tokens := TokenizeCode("connectDatabase retryBackoff flushQueue")
	require.NotEmpty(t, tokens)

	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
		assert.Equal(t, 1.0, tok.ImportanceWeight)
	}
}

func TestTokenizeCode_Lowercases(t *testing.T) {
	tokens := TokenizeCode("HTTPServer")
	texts := tokenTexts(tokens)
	assert.Equal(t, []string{"http", "server"}, texts)
}

func TestTokenizeCode_EmptyInput(t *testing.T) {
	assert.Empty(t, TokenizeCode(""))
	assert.Empty(t, TokenizeCode("   \n\t"))
	assert.Empty(t, TokenizeCode("!@#$%^&*"))
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"Foo", "BAR"})
	_, hasFoo := m["foo"]
	_, hasBar := m["bar"]
	assert.True(t, hasFoo)
	assert.True(t, hasBar)
	assert.Len(t, m, 2)
}
