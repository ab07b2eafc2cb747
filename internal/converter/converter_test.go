package converter

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/mrmr/pkg/category"
	"github.com/ajitpratap0/mrmr/pkg/errors"
	"github.com/ajitpratap0/mrmr/pkg/format"
	"github.com/ajitpratap0/mrmr/pkg/testutil"
)

const scenarioA = "a,b,c\nx,1,p\ny,1,q\nx,2,p\n"

func littleEndianOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.Engine = format.LittleEndian()
	opts.Logger = zaptest.NewLogger(t)
	return opts
}

func convertString(t *testing.T, input string, opts Options) (*Result, []byte, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := Convert(context.Background(), strings.NewReader(input), &out, opts)
	return res, out.Bytes(), err
}

func TestConvert_ScenarioA(t *testing.T) {
	res, out, err := convertString(t, scenarioA, littleEndianOptions(t))
	require.NoError(t, err)

	expected := []byte{
		3, 0, 0, 0,
		3, 0, 0, 0,
		0, 0, 0,
		1, 0, 1,
		0, 1, 0,
	}
	assert.Equal(t, expected, out)

	assert.Equal(t, uint32(3), res.Header.Samples)
	assert.Equal(t, uint32(3), res.Header.Features)
	assert.Equal(t, uint64(3), res.TotalRows)
	assert.Zero(t, res.Dropped)
	assert.Equal(t, []string{"a", "b", "c"}, res.Names)
	assert.Equal(t, int64(len(expected)), res.Written)
	assert.Equal(t, []string{"x", "y"}, res.Encoder.Column(0).Categories())
	assert.Equal(t, []string{"1", "2"}, res.Encoder.Column(1).Categories())
	assert.Equal(t, []string{"p", "q"}, res.Encoder.Column(2).Categories())
}

func TestConvert_ScenarioB(t *testing.T) {
	opts := littleEndianOptions(t)
	opts.Alignment = 16

	res, out, err := convertString(t, scenarioA, opts)
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 0, 3, 0, 0, 0}, out)
	assert.Equal(t, uint64(3), res.Dropped)
	assert.Equal(t, uint64(3), res.TotalRows)
	assert.Equal(t, uint32(0), res.Header.Samples)
}

func TestConvert_AlignmentProperty(t *testing.T) {
	for _, rows := range []int{0, 1, 15, 16, 17, 31, 32, 50} {
		t.Run(fmt.Sprintf("rows=%d", rows), func(t *testing.T) {
			opts := littleEndianOptions(t)
			opts.Alignment = 16

			input := testutil.GeneratedCSV(rows, 4, 5)
			res, out, err := convertString(t, input, opts)
			require.NoError(t, err)

			want := uint64(rows - rows%16)
			assert.Equal(t, want, uint64(res.Header.Samples))
			assert.Zero(t, res.Header.Samples%16)
			assert.Equal(t, uint64(rows%16), res.Dropped)
			assert.Len(t, out, int(format.HeaderSize+want*4))
		})
	}
}

func TestConvert_OutputLength(t *testing.T) {
	for _, tc := range []struct{ rows, features int }{{0, 1}, {1, 1}, {10, 3}, {100, 20}} {
		input := testutil.GeneratedCSV(tc.rows, tc.features, 7)
		res, out, err := convertString(t, input, littleEndianOptions(t))
		require.NoError(t, err)

		assert.Len(t, out, format.HeaderSize+tc.rows*tc.features)
		assert.Equal(t, uint32(tc.rows), binary.LittleEndian.Uint32(out[0:4]))
		assert.Equal(t, uint32(tc.features), binary.LittleEndian.Uint32(out[4:8]))
		assert.Equal(t, int64(len(out)), res.Written)
	}
}

func TestConvert_FirstSeenOrder(t *testing.T) {
	input := "c\nz\ny\nz\nx\ny\n"
	res, out, err := convertString(t, input, littleEndianOptions(t))
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 1, 0, 2, 1}, out[format.HeaderSize:])
	assert.Equal(t, []string{"z", "y", "x"}, res.Encoder.Column(0).Categories())
}

func TestConvert_Delimiter(t *testing.T) {
	opts := littleEndianOptions(t)
	opts.Delimiter = ';'

	res, out, err := convertString(t, "a;b\nx,1;p\nx,2;p\n", opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Header.Features)
	assert.Equal(t, []byte{0, 0, 1, 0}, out[format.HeaderSize:])
}

func TestConvert_NoTrailingNewlineAndCRLF(t *testing.T) {
	res, out, err := convertString(t, "a,b\r\nx,y\r\nx,z", littleEndianOptions(t))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), res.Header.Samples)
	assert.Equal(t, []string{"a", "b"}, res.Names)
	assert.Equal(t, []byte{0, 0, 0, 1}, out[format.HeaderSize:])
}

func TestConvert_EmptyTokens(t *testing.T) {
	res, out, err := convertString(t, "a,b,c\n,,\nx,,\n", littleEndianOptions(t))
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0}, out[format.HeaderSize:])
	assert.Equal(t, []string{"", "x"}, res.Encoder.Column(0).Categories())
}

func TestConvert_ColumnMismatch(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   uint64
		actual int
	}{
		{name: "too few", input: "a,b,c\nx,y,z\nx,y\n", line: 3, actual: 2},
		{name: "too many", input: "a,b\nx,y,z\n", line: 2, actual: 3},
		{name: "blank row", input: "a,b\nx,y\n\nx,y\n", line: 3, actual: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := convertString(t, tt.input, littleEndianOptions(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrColumnMismatch))
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))

			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Details["line"])
			assert.Equal(t, tt.actual, e.Details["actual"])
		})
	}
}

func TestConvert_MismatchBeyondSamplesIgnored(t *testing.T) {
	opts := littleEndianOptions(t)
	opts.Alignment = 2

	// Three rows truncate to two; the malformed third row is never encoded
	res, out, err := convertString(t, "a,b\nx,y\nx,z\nbroken\n", opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Header.Samples)
	assert.Equal(t, []byte{0, 0, 0, 1}, out[format.HeaderSize:])
}

func TestConvert_CategoryOverflow(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i <= category.MaxCategories; i++ {
		fmt.Fprintf(&b, "v%d\n", i)
	}

	_, _, err := convertString(t, b.String(), littleEndianOptions(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, category.ErrCategoryOverflow))
	assert.True(t, errors.IsType(err, errors.ErrorTypeOverflow))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, uint64(category.MaxCategories+2), e.Details["line"])
}

func TestConvert_ExactlyMaxCategories(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < category.MaxCategories; i++ {
		fmt.Fprintf(&b, "v%d\n", i)
	}

	res, out, err := convertString(t, b.String(), littleEndianOptions(t))
	require.NoError(t, err)
	assert.Equal(t, byte(255), out[len(out)-1])
	assert.Equal(t, category.MaxCategories, res.Encoder.Column(0).Len())
}

func TestConvert_EmptyInput(t *testing.T) {
	_, _, err := convertString(t, "", littleEndianOptions(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestConvert_HeaderOnly(t *testing.T) {
	res, out, err := convertString(t, "a,b,c\n", littleEndianOptions(t))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 3, 0, 0, 0}, out)
	assert.Equal(t, 3, res.Encoder.Features())
}

func TestConvert_LineTooLong(t *testing.T) {
	opts := littleEndianOptions(t)
	opts.MaxLineBytes = 16

	_, _, err := convertString(t, "a\n"+strings.Repeat("x", 64)+"\n", opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLineTooLong))
}

func TestConvert_BigEndianHeader(t *testing.T) {
	opts := littleEndianOptions(t)
	opts.Engine = format.BigEndian()

	_, out, err := convertString(t, scenarioA, opts)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 3, 0, 0, 0, 3}, out[:format.HeaderSize])
}

func TestConvert_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := Convert(ctx, strings.NewReader(scenarioA), &out, littleEndianOptions(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, out.Len())
}

func TestEncode_InputEndedEarly(t *testing.T) {
	h, err := format.NewHeader(5, 1)
	require.NoError(t, err)

	var out bytes.Buffer
	_, _, _, err = Encode(context.Background(), strings.NewReader("a\nx\n"), &out, h, littleEndianOptions(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputChanged))
}

func TestCount(t *testing.T) {
	counts, err := Count(context.Background(), strings.NewReader(scenarioA), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Counts{Features: 3, Rows: 3}, counts)

	counts, err = Count(context.Background(), strings.NewReader("a,b\n\n\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Counts{Features: 2, Rows: 2}, counts)
}

func TestAlign(t *testing.T) {
	tests := []struct {
		rows, alignment, kept, dropped uint64
	}{
		{rows: 3, alignment: 0, kept: 3, dropped: 0},
		{rows: 3, alignment: 16, kept: 0, dropped: 3},
		{rows: 16, alignment: 16, kept: 16, dropped: 0},
		{rows: 35, alignment: 16, kept: 32, dropped: 3},
	}
	for _, tt := range tests {
		kept, dropped := Align(tt.rows, tt.alignment)
		assert.Equal(t, tt.kept, kept)
		assert.Equal(t, tt.dropped, dropped)
	}
}
