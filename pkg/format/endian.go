package format

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// NativeEngine returns the byte order of the host. The header of the binary
// format is written in host order, matching what the feature selector reads.
func NativeEngine() EndianEngine {
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EngineByName resolves "native", "little" or "big"
func EngineByName(name string) (EndianEngine, bool) {
	switch name {
	case "", "native":
		return NativeEngine(), true
	case "little":
		return binary.LittleEndian, true
	case "big":
		return binary.BigEndian, true
	default:
		return nil, false
	}
}

// LittleEndian returns the little-endian engine
func LittleEndian() EndianEngine {
	return binary.LittleEndian
}

// BigEndian returns the big-endian engine
func BigEndian() EndianEngine {
	return binary.BigEndian
}

// EngineName returns "little" or "big", the inverse of EngineByName
func EngineName(e EndianEngine) string {
	if e.Uint16([]byte{0x01, 0x00}) == 1 {
		return "little"
	}
	return "big"
}
