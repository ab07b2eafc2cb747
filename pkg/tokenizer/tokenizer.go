// Package tokenizer splits a single line of delimited text into field tokens.
//
// Splitting is strict: there is no quoting, escaping or whitespace trimming.
// Consecutive delimiters produce empty tokens and a trailing delimiter produces
// a trailing empty token. An empty line has no tokens at all.
//
//	tok := tokenizer.New("x,,z", ',')
//	for tok.HasMoreTokens() {
//	    field, _ := tok.NextToken() // "x", "", "z"
//	}
package tokenizer

import (
	"strings"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// DefaultDelimiter is the field separator of a CSV file
const DefaultDelimiter byte = ','

// ErrNoMoreTokens is returned by NextToken once every token has been consumed
var ErrNoMoreTokens = errors.Sentinel(errors.ErrorTypeInternal, "no more tokens")

// Tokenizer yields the tokens of one line lazily. It is not safe for concurrent use.
type Tokenizer struct {
	line  string
	delim byte
	pos   int
	done  bool
}

// New creates a tokenizer over line
func New(line string, delim byte) *Tokenizer {
	t := &Tokenizer{delim: delim}
	t.Reset(line)
	return t
}

// Reset points the tokenizer at a new line so one instance can serve a whole file
func (t *Tokenizer) Reset(line string) {
	t.line = line
	t.pos = 0
	t.done = line == ""
}

// HasMoreTokens reports whether NextToken will return another token
func (t *Tokenizer) HasMoreTokens() bool {
	return !t.done
}

// NextToken returns and consumes the next token
func (t *Tokenizer) NextToken() (string, error) {
	if t.done {
		return "", ErrNoMoreTokens
	}

	rest := t.line[t.pos:]
	i := strings.IndexByte(rest, t.delim)
	if i < 0 {
		t.done = true
		t.pos = len(t.line)
		return rest, nil
	}

	t.pos += i + 1
	return rest[:i], nil
}

// Count returns the number of tokens in line without materializing them
func Count(line string, delim byte) int {
	if line == "" {
		return 0
	}
	return strings.Count(line, string(delim)) + 1
}
