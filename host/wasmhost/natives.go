package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/pool"
	"github.com/Southclaws/pawn-requests/request"
	"github.com/Southclaws/pawn-requests/session"
)

const (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

// hostFunc is one native. Every native returns a single i32.
type hostFunc struct {
	name   string
	params []api.ValueType
	fn     func(m api.Module, p []uint64) int32
}

func i32s(n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = i32
	}
	return out
}

func arg(p []uint64, i int) int32 { return api.DecodeI32(p[i]) }

func handle(p []uint64, i int) pool.Handle { return pool.Handle(api.DecodeI32(p[i])) }

func (h *Host) buildNatives() wazero.HostModuleBuilder {
	builder := h.rt.NewHostModuleBuilder(ModuleName)
	for _, f := range natives(h.sess) {
		fn := f.fn
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, m api.Module, stack []uint64) {
				stack[0] = api.EncodeI32(fn(m, stack))
			}), f.params, []api.ValueType{i32}).
			Export(f.name)
	}
	return builder
}

// natives lists the exported functions. Strings are (ptr, len) pairs,
// out-parameters are pointers and output strings are (buf, size) pairs.
func natives(s *session.Session) []hostFunc {
	str := func(m api.Module, p []uint64, i int) string { return readString(m, p[i], p[i+1]) }

	return []hostFunc{
		{"RequestsClient", i32s(3), func(m api.Module, p []uint64) int32 {
			return int32(s.RequestsClient(str(m, p, 0), handle(p, 2)))
		}},
		{"RequestsClientDestroy", i32s(1), func(_ api.Module, p []uint64) int32 {
			return s.RequestsClientDestroy(handle(p, 0))
		}},
		{"RequestHeaders", i32s(2), func(m api.Module, p []uint64) int32 {
			pairs, ok := readStrings(m, p[0], p[1])
			if !ok {
				return session.Failed
			}
			return int32(s.RequestHeaders(pairs...))
		}},
		{"Request", i32s(9), func(m api.Module, p []uint64) int32 {
			return s.Request(handle(p, 0), str(m, p, 1), request.Method(arg(p, 3)),
				str(m, p, 4), str(m, p, 6), handle(p, 8))
		}},
		{"RequestJSON", i32s(8), func(m api.Module, p []uint64) int32 {
			return s.RequestJSON(handle(p, 0), str(m, p, 1), request.Method(arg(p, 3)),
				str(m, p, 4), handle(p, 6), handle(p, 7))
		}},
		{"WebSocketClient", i32s(4), func(m api.Module, p []uint64) int32 {
			return int32(s.WebSocketClient(str(m, p, 0), str(m, p, 2)))
		}},
		{"JsonWebSocketClient", i32s(4), func(m api.Module, p []uint64) int32 {
			return int32(s.JsonWebSocketClient(str(m, p, 0), str(m, p, 2)))
		}},
		{"WebSocketSend", i32s(3), func(m api.Module, p []uint64) int32 {
			return s.WebSocketSend(handle(p, 0), str(m, p, 1))
		}},
		{"JsonWebSocketSend", i32s(2), func(_ api.Module, p []uint64) int32 {
			return s.JsonWebSocketSend(handle(p, 0), handle(p, 1))
		}},
		{"WebSocketClose", i32s(1), func(_ api.Module, p []uint64) int32 {
			return s.WebSocketClose(handle(p, 0))
		}},

		{"JsonParse", i32s(3), func(m api.Module, p []uint64) int32 {
			node, code := s.JsonParse(str(m, p, 0))
			writeI32(m, p[2], int32(node))
			return code
		}},
		{"JsonStringify", i32s(3), func(m api.Module, p []uint64) int32 {
			out, code := s.JsonStringify(handle(p, 0))
			writeString(m, p[1], p[2], out)
			return code
		}},
		{"JsonNodeType", i32s(1), func(_ api.Module, p []uint64) int32 {
			return s.JsonNodeType(handle(p, 0))
		}},
		// Entries are (keyPtr, keyLen, node) triples.
		{"JsonObject", i32s(2), func(m api.Module, p []uint64) int32 {
			words, ok := readI32s(m, p[0], p[1]*3)
			if !ok {
				return session.Failed
			}
			args := make([]host.Arg, 0, 2*p[1])
			for i := 0; i < len(words); i += 3 {
				key := readString(m, uint64(uint32(words[i])), uint64(uint32(words[i+1])))
				args = append(args, host.String(key), host.Int(words[i+2]))
			}
			return int32(s.JsonObject(args...))
		}},
		{"JsonInt", i32s(1), func(_ api.Module, p []uint64) int32 {
			return int32(s.JsonInt(arg(p, 0)))
		}},
		{"JsonFloat", []api.ValueType{f64}, func(_ api.Module, p []uint64) int32 {
			return int32(s.JsonFloat(api.DecodeF64(p[0])))
		}},
		{"JsonBool", i32s(1), func(_ api.Module, p []uint64) int32 {
			return int32(s.JsonBool(arg(p, 0) != 0))
		}},
		{"JsonString", i32s(2), func(m api.Module, p []uint64) int32 {
			return int32(s.JsonString(str(m, p, 0)))
		}},
		{"JsonArray", i32s(2), func(m api.Module, p []uint64) int32 {
			words, ok := readI32s(m, p[0], p[1])
			if !ok {
				return session.Failed
			}
			nodes := make([]pool.Handle, len(words))
			for i, w := range words {
				nodes[i] = pool.Handle(w)
			}
			return int32(s.JsonArray(nodes...))
		}},
		{"JsonAppend", i32s(2), func(_ api.Module, p []uint64) int32 {
			return int32(s.JsonAppend(handle(p, 0), handle(p, 1)))
		}},

		{"JsonSetObject", i32s(4), func(m api.Module, p []uint64) int32 {
			return s.JsonSetObject(handle(p, 0), str(m, p, 1), handle(p, 3))
		}},
		{"JsonSetInt", i32s(4), func(m api.Module, p []uint64) int32 {
			return s.JsonSetInt(handle(p, 0), str(m, p, 1), arg(p, 3))
		}},
		{"JsonSetFloat", []api.ValueType{i32, i32, i32, f64}, func(m api.Module, p []uint64) int32 {
			return s.JsonSetFloat(handle(p, 0), str(m, p, 1), api.DecodeF64(p[3]))
		}},
		{"JsonSetBool", i32s(4), func(m api.Module, p []uint64) int32 {
			return s.JsonSetBool(handle(p, 0), str(m, p, 1), arg(p, 3) != 0)
		}},
		{"JsonSetString", i32s(5), func(m api.Module, p []uint64) int32 {
			return s.JsonSetString(handle(p, 0), str(m, p, 1), str(m, p, 3))
		}},

		{"JsonGetObject", i32s(4), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetObject(handle(p, 0), str(m, p, 1))
			writeI32(m, p[3], int32(v))
			return code
		}},
		{"JsonGetInt", i32s(4), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetInt(handle(p, 0), str(m, p, 1))
			writeI32(m, p[3], v)
			return code
		}},
		{"JsonGetFloat", i32s(4), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetFloat(handle(p, 0), str(m, p, 1))
			writeF64(m, p[3], v)
			return code
		}},
		{"JsonGetBool", i32s(4), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetBool(handle(p, 0), str(m, p, 1))
			writeI32(m, p[3], boolI32(v))
			return code
		}},
		{"JsonGetString", i32s(5), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetString(handle(p, 0), str(m, p, 1))
			writeString(m, p[3], p[4], v)
			return code
		}},
		{"JsonGetArray", i32s(4), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetArray(handle(p, 0), str(m, p, 1))
			writeI32(m, p[3], int32(v))
			return code
		}},
		{"JsonArrayLength", i32s(2), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonArrayLength(handle(p, 0))
			writeI32(m, p[1], v)
			return code
		}},
		{"JsonArrayObject", i32s(3), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonArrayObject(handle(p, 0), arg(p, 1))
			writeI32(m, p[2], int32(v))
			return code
		}},

		{"JsonGetNodeInt", i32s(2), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetNodeInt(handle(p, 0))
			writeI32(m, p[1], v)
			return code
		}},
		{"JsonGetNodeFloat", i32s(2), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetNodeFloat(handle(p, 0))
			writeF64(m, p[1], v)
			return code
		}},
		{"JsonGetNodeBool", i32s(2), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetNodeBool(handle(p, 0))
			writeI32(m, p[1], boolI32(v))
			return code
		}},
		{"JsonGetNodeString", i32s(3), func(m api.Module, p []uint64) int32 {
			v, code := s.JsonGetNodeString(handle(p, 0))
			writeString(m, p[1], p[2], v)
			return code
		}},

		{"JsonToggleGC", i32s(2), func(_ api.Module, p []uint64) int32 {
			return s.JsonToggleGC(handle(p, 0), arg(p, 1) != 0)
		}},
		{"JsonCleanup", i32s(2), func(_ api.Module, p []uint64) int32 {
			return s.JsonCleanup(handle(p, 0), arg(p, 1) != 0)
		}},
	}
}

func boolI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
