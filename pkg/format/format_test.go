package format

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

func TestNativeEngine(t *testing.T) {
	var probe uint32 = 0x01020304
	buf := NativeEngine().AppendUint32(nil, probe)

	// Whatever the host order is, it must agree with how the CPU lays out the value.
	native := *(*[4]byte)(unsafe.Pointer(&probe))
	assert.Equal(t, native[:], buf)
}

func TestEngineByName(t *testing.T) {
	e, ok := EngineByName("big")
	require.True(t, ok)
	assert.Equal(t, binary.BigEndian, e)

	e, ok = EngineByName("little")
	require.True(t, ok)
	assert.Equal(t, binary.LittleEndian, e)

	_, ok = EngineByName("middle")
	assert.False(t, ok)
}

func TestHeader_Bytes(t *testing.T) {
	h := Header{Samples: 3, Features: 0x0102}
	assert.Equal(t, []byte{3, 0, 0, 0, 0x02, 0x01, 0, 0}, h.Bytes(binary.LittleEndian))
	assert.Equal(t, []byte{0, 0, 0, 3, 0, 0, 0x01, 0x02}, h.Bytes(binary.BigEndian))

	parsed, err := ParseHeader(h.Bytes(binary.BigEndian), binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHeader([]byte{1, 2, 3}, binary.LittleEndian)
	assert.ErrorIs(t, err, ErrInvalidHeaderSize)
}

func TestNewHeader_Overflow(t *testing.T) {
	_, err := NewHeader(math.MaxUint32+1, 1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOverflow))

	h, err := NewHeader(math.MaxUint32, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxUint32)*2+HeaderSize, h.Size())
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, binary.LittleEndian, 16)

	require.NoError(t, w.WriteHeader(Header{Samples: 2, Features: 3}))
	for _, c := range []byte{0, 0, 0, 1, 0, 1} {
		require.NoError(t, w.WriteCode(c))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, 8+6, buf.Len())

	ds, err := ReadDataset(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, Header{Samples: 2, Features: 3}, ds.Header)
	assert.Equal(t, []byte{1, 0, 1}, ds.Row(1))
	assert.Equal(t, []int{2, 1, 2}, ds.DistinctCodes())
}

func TestWriter_Misuse(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil, 16)

	assert.Error(t, w.WriteCode(1))
	require.NoError(t, w.WriteHeader(Header{Samples: 1, Features: 2}))
	assert.Error(t, w.WriteHeader(Header{}))

	require.NoError(t, w.WriteCode(1))
	err := w.Flush()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestReadDataset_Errors(t *testing.T) {
	le := binary.LittleEndian

	_, err := ReadDataset(bytes.NewReader([]byte{1, 0}), le)
	assert.ErrorIs(t, err, ErrInvalidHeaderSize)

	short := append(Header{Samples: 2, Features: 2}.Bytes(le), 0, 1, 0)
	_, err = ReadDataset(bytes.NewReader(short), le)
	assert.ErrorIs(t, err, ErrTruncatedGrid)

	long := append(Header{Samples: 1, Features: 1}.Bytes(le), 0, 9)
	_, err = ReadDataset(bytes.NewReader(long), le)
	assert.ErrorIs(t, err, ErrTrailingData)

	empty, err := ReadDataset(bytes.NewReader(Header{}.Bytes(le)), le)
	require.NoError(t, err)
	assert.Empty(t, empty.Grid)
}
