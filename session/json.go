package session

import (
	"math"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
)

// withNode runs fn on the stored node under the pool lock. fn must not
// touch any pool.
func (s *Session) withNode(h pool.Handle, fn func(v *jsonvalue.Value) int32) int32 {
	code := UnknownNode
	s.nodes.Update(h, func(v **jsonvalue.Value) bool {
		code = fn(*v)
		return true
	})
	return code
}

// JsonParse parses input into a new node.
func (s *Session) JsonParse(input string) (pool.Handle, int32) {
	v, err := jsonvalue.ParseString(input)
	if err != nil {
		s.log.Warn("JsonParse failed", zap.Error(err))
		return pool.Invalid, UnknownNode
	}
	return s.alloc(v)
}

// alloc stores v for natives that report a result code with the handle.
func (s *Session) alloc(v *jsonvalue.Value) (pool.Handle, int32) {
	h := s.nodes.Alloc(v)
	if !h.Valid() {
		s.log.Error("json pool exhausted")
		return pool.Error, Failed
	}
	return h, OK
}

// JsonStringify serialises a node without consuming it.
func (s *Session) JsonStringify(h pool.Handle) (string, int32) {
	var out string
	code := s.withNode(h, func(v *jsonvalue.Value) int32 {
		str, err := v.Stringify()
		if err != nil {
			s.log.Warn("JsonStringify failed", zap.Int32("node", int32(h)), zap.Error(err))
			return UnknownNode
		}
		out = str
		return OK
	})
	return out, code
}

// JsonNodeType returns the kind code of a node, or Failed if it is unknown.
func (s *Session) JsonNodeType(h pool.Handle) int32 {
	kind := Failed
	s.withNode(h, func(v *jsonvalue.Value) int32 {
		kind = int32(v.Kind())
		return OK
	})
	return kind
}

// JsonObject builds an object from alternating key strings and node
// handles. Every node handle passed is consumed, even when construction
// fails part way.
func (s *Session) JsonObject(args ...host.Arg) pool.Handle {
	obj := jsonvalue.Object(nil)
	result := pool.Invalid
	if len(args)%2 != 0 {
		s.log.Warn("JsonObject called with a key and no value", zap.Int("args", len(args)))
		result = pool.Error
	}
	for i := 0; i+1 < len(args); i += 2 {
		key, val := args[i], args[i+1]
		child, ok := s.nodes.Consume(pool.Handle(val.Int32()))
		if result != pool.Invalid {
			continue
		}
		if key.Kind != host.ArgString || key.S == "" || len(key.S) > maxKeyLen {
			s.log.Warn("JsonObject key out of bounds", zap.Int("len", len(key.S)))
			result = pool.Error
			continue
		}
		if !ok {
			s.log.Warn("JsonObject value node invalid", zap.Int32("node", val.Int32()))
			result = pool.Handle(BadChild)
			continue
		}
		obj.Set(key.S, child)
	}
	if result != pool.Invalid {
		return result
	}
	return s.nodes.Alloc(obj)
}

// JsonArray builds an array from node handles, consuming each.
func (s *Session) JsonArray(nodes ...pool.Handle) pool.Handle {
	arr := jsonvalue.Array()
	failed := false
	for _, h := range nodes {
		child, ok := s.nodes.Consume(h)
		if !ok {
			if !failed {
				s.log.Warn("JsonArray value node invalid", zap.Int32("node", int32(h)))
			}
			failed = true
			continue
		}
		if !failed {
			arr.Append(child)
		}
	}
	if failed {
		return pool.Handle(BadChild)
	}
	return s.nodes.Alloc(arr)
}

// JsonInt allocates a number node.
func (s *Session) JsonInt(v int32) pool.Handle {
	return s.nodes.Alloc(jsonvalue.Int(int64(v)))
}

// JsonFloat allocates a number node.
func (s *Session) JsonFloat(v float64) pool.Handle {
	return s.nodes.Alloc(jsonvalue.Float(v))
}

// JsonBool allocates a boolean node.
func (s *Session) JsonBool(v bool) pool.Handle {
	return s.nodes.Alloc(jsonvalue.Bool(v))
}

// JsonString allocates a string node.
func (s *Session) JsonString(v string) pool.Handle {
	return s.nodes.Alloc(jsonvalue.String(v))
}

// JsonAppend merges two objects or concatenates two arrays into a new
// node. a is left untouched; b is taken.
func (s *Session) JsonAppend(a, b pool.Handle) pool.Handle {
	left, okA := s.nodes.Get(a)
	right, okB := s.nodes.Take(b)
	if !okA || !okB {
		return pool.Error
	}
	merged, ok := jsonvalue.Merge(left, right)
	if !ok {
		s.log.Warn("JsonAppend operands are not two objects or two arrays",
			zap.Stringer("a", left.Kind()), zap.Stringer("b", right.Kind()))
		return pool.Error
	}
	return s.nodes.Alloc(merged)
}

// setField stores child under key if h is an object.
func (s *Session) setField(h pool.Handle, key string, child *jsonvalue.Value) int32 {
	return s.withNode(h, func(v *jsonvalue.Value) int32 {
		if !v.Set(key, child) {
			return WrongContainer
		}
		return OK
	})
}

// JsonSetObject stores the node value under key. value is taken only once
// node is known to be an object.
func (s *Session) JsonSetObject(node pool.Handle, key string, value pool.Handle) int32 {
	code := s.withNode(node, func(v *jsonvalue.Value) int32 {
		if v.Kind() != jsonvalue.KindObject {
			return WrongContainer
		}
		return OK
	})
	if code != OK {
		return code
	}
	child, ok := s.nodes.Take(value)
	if !ok {
		return TypeMismatch
	}
	return s.setField(node, key, child)
}

func (s *Session) JsonSetInt(node pool.Handle, key string, v int32) int32 {
	return s.setField(node, key, jsonvalue.Int(int64(v)))
}

func (s *Session) JsonSetFloat(node pool.Handle, key string, v float64) int32 {
	return s.setField(node, key, jsonvalue.Float(v))
}

func (s *Session) JsonSetBool(node pool.Handle, key string, v bool) int32 {
	return s.setField(node, key, jsonvalue.Bool(v))
}

func (s *Session) JsonSetString(node pool.Handle, key string, v string) int32 {
	return s.setField(node, key, jsonvalue.String(v))
}

// field looks up key on an object node and passes the field to fn.
func (s *Session) field(h pool.Handle, key string, fn func(f *jsonvalue.Value) int32) int32 {
	return s.withNode(h, func(v *jsonvalue.Value) int32 {
		if v.Kind() != jsonvalue.KindObject {
			return WrongContainer
		}
		f, ok := v.Field(key)
		if !ok {
			s.log.Debug("json field missing", zap.Error(
				errors.New(errors.PhasePool, errors.KindNotFound).Path(key).Detail("no such field").Build()))
			return WrongContainer
		}
		return fn(f)
	})
}

// mismatch logs a getter whose field has the wrong kind.
func (s *Session) mismatch(key, want string, got *jsonvalue.Value) int32 {
	s.log.Debug("json field type mismatch", zap.Error(
		errors.TypeMismatch(errors.PhasePool, []string{key}, want, got.Kind().String())))
	return TypeMismatch
}

func toInt32(v *jsonvalue.Value) (int32, bool) {
	if v.IsInteger() {
		i, _ := v.AsInt()
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, false
		}
		return int32(i), true
	}
	f, ok := v.AsFloat()
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int32(f), true
}

// JsonGetInt reads an integer field.
func (s *Session) JsonGetInt(node pool.Handle, key string) (int32, int32) {
	var out int32
	code := s.field(node, key, func(f *jsonvalue.Value) int32 {
		i, ok := toInt32(f)
		if !ok {
			return s.mismatch(key, "integer", f)
		}
		out = i
		return OK
	})
	return out, code
}

// JsonGetFloat reads a numeric field. Integers are accepted.
func (s *Session) JsonGetFloat(node pool.Handle, key string) (float64, int32) {
	var out float64
	code := s.field(node, key, func(f *jsonvalue.Value) int32 {
		x, ok := f.AsFloat()
		if !ok {
			return s.mismatch(key, "number", f)
		}
		out = x
		return OK
	})
	return out, code
}

// JsonGetBool reads a boolean field.
func (s *Session) JsonGetBool(node pool.Handle, key string) (bool, int32) {
	var out bool
	code := s.field(node, key, func(f *jsonvalue.Value) int32 {
		b, ok := f.AsBool()
		if !ok {
			return s.mismatch(key, "boolean", f)
		}
		out = b
		return OK
	})
	return out, code
}

// JsonGetString reads a string field.
func (s *Session) JsonGetString(node pool.Handle, key string) (string, int32) {
	var out string
	code := s.field(node, key, func(f *jsonvalue.Value) int32 {
		str, ok := f.AsString()
		if !ok {
			return s.mismatch(key, "string", f)
		}
		out = str
		return OK
	})
	return out, code
}

// getChild copies a container field out as a new node. The copy is made
// under the lock and allocated after it is released.
func (s *Session) getChild(node pool.Handle, key string, want jsonvalue.Kind) (pool.Handle, int32) {
	var child *jsonvalue.Value
	code := s.field(node, key, func(f *jsonvalue.Value) int32 {
		if want == jsonvalue.KindArray && f.Kind() != jsonvalue.KindArray {
			return s.mismatch(key, want.String(), f)
		}
		child = f.Clone()
		return OK
	})
	if code != OK {
		return pool.Invalid, code
	}
	return s.alloc(child)
}

// JsonGetObject copies the field under key into a new node. Any value kind
// is accepted.
func (s *Session) JsonGetObject(node pool.Handle, key string) (pool.Handle, int32) {
	return s.getChild(node, key, jsonvalue.KindObject)
}

// JsonGetArray copies an array field into a new node.
func (s *Session) JsonGetArray(node pool.Handle, key string) (pool.Handle, int32) {
	return s.getChild(node, key, jsonvalue.KindArray)
}

// JsonArrayLength returns the number of elements of an array node.
func (s *Session) JsonArrayLength(node pool.Handle) (int32, int32) {
	var n int32
	code := s.withNode(node, func(v *jsonvalue.Value) int32 {
		if v.Kind() != jsonvalue.KindArray {
			return UnknownNode
		}
		n = int32(v.Len())
		return OK
	})
	return n, code
}

// JsonArrayObject copies the element at index into a new node.
func (s *Session) JsonArrayObject(node pool.Handle, index int32) (pool.Handle, int32) {
	var elem *jsonvalue.Value
	code := s.withNode(node, func(v *jsonvalue.Value) int32 {
		if v.Kind() != jsonvalue.KindArray {
			return UnknownNode
		}
		e, ok := v.Index(int(index))
		if !ok {
			return WrongContainer
		}
		elem = e.Clone()
		return OK
	})
	if code != OK {
		return pool.Invalid, code
	}
	return s.alloc(elem)
}

// takeNode takes node and passes its value to fn.
func (s *Session) takeNode(node pool.Handle, fn func(v *jsonvalue.Value) int32) int32 {
	v, ok := s.nodes.Take(node)
	if !ok {
		return UnknownNode
	}
	return fn(v)
}

// JsonGetNodeInt reads an integer node, taking it.
func (s *Session) JsonGetNodeInt(node pool.Handle) (int32, int32) {
	var out int32
	code := s.takeNode(node, func(v *jsonvalue.Value) int32 {
		i, ok := toInt32(v)
		if !ok {
			return TypeMismatch
		}
		out = i
		return OK
	})
	return out, code
}

// JsonGetNodeFloat reads a number node, taking it.
func (s *Session) JsonGetNodeFloat(node pool.Handle) (float64, int32) {
	var out float64
	code := s.takeNode(node, func(v *jsonvalue.Value) int32 {
		f, ok := v.AsFloat()
		if !ok {
			return TypeMismatch
		}
		out = f
		return OK
	})
	return out, code
}

// JsonGetNodeBool reads a boolean node, taking it.
func (s *Session) JsonGetNodeBool(node pool.Handle) (bool, int32) {
	var out bool
	code := s.takeNode(node, func(v *jsonvalue.Value) int32 {
		b, ok := v.AsBool()
		if !ok {
			return TypeMismatch
		}
		out = b
		return OK
	})
	return out, code
}

// JsonGetNodeString reads a string node, taking it.
func (s *Session) JsonGetNodeString(node pool.Handle) (string, int32) {
	var out string
	code := s.takeNode(node, func(v *jsonvalue.Value) int32 {
		str, ok := v.AsString()
		if !ok {
			return TypeMismatch
		}
		out = str
		return OK
	})
	return out, code
}

// JsonToggleGC sets whether node is destroyed by the next consuming call.
func (s *Session) JsonToggleGC(node pool.Handle, retain bool) int32 {
	if !s.nodes.SetGC(node, retain) {
		return UnknownNode
	}
	return OK
}

// JsonCleanup destroys node. With auto set a node whose retain flag was
// cleared is left alone, so scripts can call it unconditionally at the end
// of a callback.
func (s *Session) JsonCleanup(node pool.Handle, auto bool) int32 {
	retain, ok := s.nodes.Retained(node)
	if !ok {
		if !auto {
			s.log.Warn("JsonCleanup on unknown node", zap.Int32("node", int32(node)))
		}
		return UnknownNode
	}
	if auto && !retain {
		return Retained
	}
	s.nodes.CollectForce(node)
	return OK
}
