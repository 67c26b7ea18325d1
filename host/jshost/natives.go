package jshost

import (
	"math"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
	"github.com/Southclaws/pawn-requests/request"
)

// native must stay an alias: goja only recognises the unnamed func type.
type native = func(call goja.FunctionCall) goja.Value

func (h *Host) install() {
	for _, m := range request.Methods() {
		h.set("HTTP_METHOD_"+m.String(), int32(m))
	}
	for k := jsonvalue.KindNumber; k <= jsonvalue.KindNull; k++ {
		h.set("JSON_NODE_"+strings.ToUpper(k.String()), int32(k))
	}
	h.set("print", h.print)

	for name, fn := range h.natives() {
		h.set(name, fn)
	}
}

func (h *Host) set(name string, v any) {
	if err := h.vm.Set(name, v); err != nil {
		h.log.Error("failed to install global", zap.String("name", name), zap.Error(err))
	}
}

func (h *Host) num(v int32) goja.Value { return h.vm.ToValue(v) }

func (h *Host) handle(v pool.Handle) goja.Value { return h.vm.ToValue(int32(v)) }

func argInt(call goja.FunctionCall, i int) int32 {
	return int32(call.Argument(i).ToInteger())
}

func argHandle(call goja.FunctionCall, i int) pool.Handle {
	return toHandle(call.Argument(i))
}

// toHandle rejects numbers outside the int32 range so they cannot alias a
// live handle.
func toHandle(v goja.Value) pool.Handle {
	n := v.ToInteger()
	if n < math.MinInt32 || n > math.MaxInt32 {
		return pool.Error
	}
	return pool.Handle(n)
}

func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// setOut stores v in the value property of the reference object at i.
func (h *Host) setOut(call goja.FunctionCall, i int, v any) {
	ref := call.Argument(i)
	if goja.IsUndefined(ref) || goja.IsNull(ref) {
		return
	}
	_ = ref.ToObject(h.vm).Set("value", v)
}

func (h *Host) natives() map[string]native {
	s := h.sess
	return map[string]native{
		"RequestsClient": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.RequestsClient(argString(c, 0), argHandle(c, 1)))
		},
		"RequestsClientDestroy": func(c goja.FunctionCall) goja.Value {
			return h.num(s.RequestsClientDestroy(argHandle(c, 0)))
		},
		"RequestHeaders": func(c goja.FunctionCall) goja.Value {
			pairs := make([]string, len(c.Arguments))
			for i := range c.Arguments {
				pairs[i] = argString(c, i)
			}
			return h.handle(s.RequestHeaders(pairs...))
		},
		"Request": func(c goja.FunctionCall) goja.Value {
			return h.num(s.Request(argHandle(c, 0), argString(c, 1), request.Method(argInt(c, 2)),
				argString(c, 3), argString(c, 4), argHandle(c, 5)))
		},
		"RequestJSON": func(c goja.FunctionCall) goja.Value {
			return h.num(s.RequestJSON(argHandle(c, 0), argString(c, 1), request.Method(argInt(c, 2)),
				argString(c, 3), argHandle(c, 4), argHandle(c, 5)))
		},
		"WebSocketClient": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.WebSocketClient(argString(c, 0), argString(c, 1)))
		},
		"JsonWebSocketClient": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonWebSocketClient(argString(c, 0), argString(c, 1)))
		},
		"WebSocketSend": func(c goja.FunctionCall) goja.Value {
			return h.num(s.WebSocketSend(argHandle(c, 0), argString(c, 1)))
		},
		"JsonWebSocketSend": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonWebSocketSend(argHandle(c, 0), argHandle(c, 1)))
		},
		"WebSocketClose": func(c goja.FunctionCall) goja.Value {
			return h.num(s.WebSocketClose(argHandle(c, 0)))
		},

		"JsonParse": func(c goja.FunctionCall) goja.Value {
			node, code := s.JsonParse(argString(c, 0))
			h.setOut(c, 1, int32(node))
			return h.num(code)
		},
		"JsonStringify": func(c goja.FunctionCall) goja.Value {
			str, code := s.JsonStringify(argHandle(c, 0))
			h.setOut(c, 1, str)
			return h.num(code)
		},
		"JsonNodeType": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonNodeType(argHandle(c, 0)))
		},
		"JsonObject": func(c goja.FunctionCall) goja.Value {
			args := make([]host.Arg, len(c.Arguments))
			for i, v := range c.Arguments {
				if i%2 == 0 {
					if key, ok := v.Export().(string); ok {
						args[i] = host.String(key)
						continue
					}
				}
				args[i] = host.Handle(toHandle(v))
			}
			return h.handle(s.JsonObject(args...))
		},
		"JsonInt": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonInt(argInt(c, 0)))
		},
		"JsonFloat": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonFloat(c.Argument(0).ToFloat()))
		},
		"JsonBool": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonBool(c.Argument(0).ToBoolean()))
		},
		"JsonString": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonString(argString(c, 0)))
		},
		"JsonArray": func(c goja.FunctionCall) goja.Value {
			nodes := make([]pool.Handle, len(c.Arguments))
			for i := range c.Arguments {
				nodes[i] = argHandle(c, i)
			}
			return h.handle(s.JsonArray(nodes...))
		},
		"JsonAppend": func(c goja.FunctionCall) goja.Value {
			return h.handle(s.JsonAppend(argHandle(c, 0), argHandle(c, 1)))
		},

		"JsonSetObject": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonSetObject(argHandle(c, 0), argString(c, 1), argHandle(c, 2)))
		},
		"JsonSetInt": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonSetInt(argHandle(c, 0), argString(c, 1), argInt(c, 2)))
		},
		"JsonSetFloat": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonSetFloat(argHandle(c, 0), argString(c, 1), c.Argument(2).ToFloat()))
		},
		"JsonSetBool": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonSetBool(argHandle(c, 0), argString(c, 1), c.Argument(2).ToBoolean()))
		},
		"JsonSetString": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonSetString(argHandle(c, 0), argString(c, 1), argString(c, 2)))
		},

		"JsonGetObject": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetObject(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, int32(v))
			return h.num(code)
		},
		"JsonGetInt": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetInt(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, v)
			return h.num(code)
		},
		"JsonGetFloat": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetFloat(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, v)
			return h.num(code)
		},
		"JsonGetBool": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetBool(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, v)
			return h.num(code)
		},
		"JsonGetString": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetString(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, v)
			return h.num(code)
		},
		"JsonGetArray": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetArray(argHandle(c, 0), argString(c, 1))
			h.setOut(c, 2, int32(v))
			return h.num(code)
		},
		"JsonArrayLength": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonArrayLength(argHandle(c, 0))
			h.setOut(c, 1, v)
			return h.num(code)
		},
		"JsonArrayObject": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonArrayObject(argHandle(c, 0), argInt(c, 1))
			h.setOut(c, 2, int32(v))
			return h.num(code)
		},

		"JsonGetNodeInt": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetNodeInt(argHandle(c, 0))
			h.setOut(c, 1, v)
			return h.num(code)
		},
		"JsonGetNodeFloat": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetNodeFloat(argHandle(c, 0))
			h.setOut(c, 1, v)
			return h.num(code)
		},
		"JsonGetNodeBool": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetNodeBool(argHandle(c, 0))
			h.setOut(c, 1, v)
			return h.num(code)
		},
		"JsonGetNodeString": func(c goja.FunctionCall) goja.Value {
			v, code := s.JsonGetNodeString(argHandle(c, 0))
			h.setOut(c, 1, v)
			return h.num(code)
		},

		"JsonToggleGC": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonToggleGC(argHandle(c, 0), c.Argument(1).ToBoolean()))
		},
		"JsonCleanup": func(c goja.FunctionCall) goja.Value {
			return h.num(s.JsonCleanup(argHandle(c, 0), c.Argument(1).ToBoolean()))
		},
	}
}
