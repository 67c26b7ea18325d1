package wasmhost

import (
	"github.com/tetratelabs/wazero/api"
)

// readString reads len bytes at ptr. Out of range reads yield "".
func readString(m api.Module, ptr, n uint64) string {
	if n == 0 {
		return ""
	}
	b, ok := m.Memory().Read(uint32(ptr), uint32(n))
	if !ok {
		return ""
	}
	return string(b)
}

// readI32s reads count little-endian i32 values starting at ptr.
func readI32s(m api.Module, ptr, count uint64) ([]int32, bool) {
	mem := m.Memory()
	if count > uint64(mem.Size())/4 {
		return nil, false
	}
	out := make([]int32, count)
	for i := range out {
		v, ok := mem.ReadUint32Le(uint32(ptr) + uint32(i)*4)
		if !ok {
			return nil, false
		}
		out[i] = int32(v)
	}
	return out, true
}

// readStrings reads count (ptr, len) pairs starting at ptr.
func readStrings(m api.Module, ptr, count uint64) ([]string, bool) {
	words, ok := readI32s(m, ptr, count*2)
	if !ok {
		return nil, false
	}
	out := make([]string, count)
	for i := range out {
		out[i] = readString(m, uint64(uint32(words[2*i])), uint64(uint32(words[2*i+1])))
	}
	return out, true
}

func writeI32(m api.Module, ptr uint64, v int32) {
	if ptr != 0 {
		m.Memory().WriteUint32Le(uint32(ptr), uint32(v))
	}
}

func writeF64(m api.Module, ptr uint64, v float64) {
	if ptr != 0 {
		m.Memory().WriteFloat64Le(uint32(ptr), v)
	}
}

// writeString copies s into buf as a NUL terminated string, truncated to
// fit size bytes.
func writeString(m api.Module, buf, size uint64, s string) {
	if buf == 0 || size == 0 {
		return
	}
	if uint64(len(s)) > size-1 {
		s = s[:size-1]
	}
	mem := m.Memory()
	if mem.WriteString(uint32(buf), s) {
		mem.WriteByte(uint32(buf)+uint32(len(s)), 0)
	}
}
