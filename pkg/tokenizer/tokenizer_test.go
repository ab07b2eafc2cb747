package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, tok *Tokenizer) []string {
	t.Helper()
	var out []string
	for tok.HasMoreTokens() {
		s, err := tok.NextToken()
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestTokenizer_Split(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim byte
		want  []string
	}{
		{name: "simple", line: "a,b,c", delim: ',', want: []string{"a", "b", "c"}},
		{name: "single field", line: "abc", delim: ',', want: []string{"abc"}},
		{name: "empty line", line: "", delim: ',', want: nil},
		{name: "consecutive delimiters", line: "a,,c", delim: ',', want: []string{"a", "", "c"}},
		{name: "leading delimiter", line: ",b", delim: ',', want: []string{"", "b"}},
		{name: "trailing delimiter", line: "a,b,", delim: ',', want: []string{"a", "b", ""}},
		{name: "only delimiter", line: ",", delim: ',', want: []string{"", ""}},
		{name: "whitespace kept", line: " a , b", delim: ',', want: []string{" a ", " b"}},
		{name: "quotes not special", line: `"a,b",c`, delim: ',', want: []string{`"a`, `b"`, "c"}},
		{name: "tab delimiter", line: "a\tb,c", delim: '\t', want: []string{"a", "b,c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, New(tt.line, tt.delim))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), Count(tt.line, tt.delim))
		})
	}
}

func TestTokenizer_NoMoreTokens(t *testing.T) {
	tok := New("a", ',')
	s, err := tok.NextToken()
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	assert.False(t, tok.HasMoreTokens())
	_, err = tok.NextToken()
	assert.ErrorIs(t, err, ErrNoMoreTokens)
}

func TestTokenizer_Reset(t *testing.T) {
	tok := New("a,b", ',')
	_ = collect(t, tok)

	tok.Reset("x,y,z")
	assert.Equal(t, []string{"x", "y", "z"}, collect(t, tok))

	tok.Reset("")
	assert.False(t, tok.HasMoreTokens())
}
