// Package category assigns compact byte codes to the distinct values of each
// feature column.
//
// Codes are handed out in first-seen order starting at 0, independently per
// column, so the same input always produces the same codes. A column may hold
// at most MaxCategories distinct values; the next new value is rejected with
// ErrCategoryOverflow instead of wrapping onto an existing code.
package category

import (
	"strings"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// MaxCategories is the number of distinct values a single byte code can represent
const MaxCategories = 256

var (
	// ErrCategoryOverflow is wrapped by Encode when a column exceeds MaxCategories
	ErrCategoryOverflow = errors.Sentinel(errors.ErrorTypeOverflow, "category overflow")
	// ErrColumnOutOfRange is wrapped by Encode for a column index outside the encoder
	ErrColumnOutOfRange = errors.Sentinel(errors.ErrorTypeData, "column out of range")
)

// Dictionary maps the distinct tokens of one column to their codes
type Dictionary struct {
	codes map[string]byte
	order []string
}

// NewDictionary creates an empty dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{codes: make(map[string]byte)}
}

// Lookup returns the code previously assigned to token
func (d *Dictionary) Lookup(token string) (byte, bool) {
	code, ok := d.codes[token]
	return code, ok
}

// Code returns the code for token, assigning the next free code if it is new
func (d *Dictionary) Code(token string) (byte, error) {
	if code, ok := d.codes[token]; ok {
		return code, nil
	}
	if len(d.order) >= MaxCategories {
		return 0, ErrCategoryOverflow
	}

	// Tokens usually alias a whole input line; keep only the token bytes.
	token = strings.Clone(token)
	code := byte(len(d.order))
	d.codes[token] = code
	d.order = append(d.order, token)
	return code, nil
}

// Len returns the number of distinct tokens seen
func (d *Dictionary) Len() int {
	return len(d.order)
}

// Categories returns the tokens ordered by code
func (d *Dictionary) Categories() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Encoder holds one Dictionary per feature column. Columns are zero-based.
type Encoder struct {
	columns []*Dictionary
}

// NewEncoder creates an encoder for featureCount columns
func NewEncoder(featureCount int) *Encoder {
	columns := make([]*Dictionary, featureCount)
	for i := range columns {
		columns[i] = NewDictionary()
	}
	return &Encoder{columns: columns}
}

// Encode returns the code of token within column
func (e *Encoder) Encode(column int, token string) (byte, error) {
	if column < 0 || column >= len(e.columns) {
		return 0, errors.Wrap(ErrColumnOutOfRange, errors.ErrorTypeData, "cannot encode token").
			WithDetail("column", column).
			WithDetail("features", len(e.columns))
	}

	code, err := e.columns[column].Code(token)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeOverflow, "column has more distinct values than a byte code holds").
			WithDetail("column", column).
			WithDetail("token", token).
			WithDetail("max_categories", MaxCategories)
	}
	return code, nil
}

// Features returns the number of columns
func (e *Encoder) Features() int {
	return len(e.columns)
}

// Column returns the dictionary of a column, or nil if out of range
func (e *Encoder) Column(column int) *Dictionary {
	if column < 0 || column >= len(e.columns) {
		return nil
	}
	return e.columns[column]
}

// Cardinalities returns the number of distinct tokens per column
func (e *Encoder) Cardinalities() []int {
	out := make([]int, len(e.columns))
	for i, d := range e.columns {
		out[i] = d.Len()
	}
	return out
}
