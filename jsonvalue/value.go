package jsonvalue

import (
	"math"
	"sort"
)

// Kind is the node type of a Value.
type Kind int32

const (
	KindNumber Kind = iota
	KindBoolean
	KindString
	KindObject
	KindArray
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value is a JSON node. Build values with the constructors below; a nil
// *Value reads as null.
type Value struct {
	obj   map[string]*Value
	s     string
	arr   []*Value
	f     float64
	i     int64
	kind  Kind
	isInt bool
	b     bool
}

// Null returns a null node.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a boolean node.
func Bool(b bool) *Value { return &Value{kind: KindBoolean, b: b} }

// Int returns an integer number node.
func Int(i int64) *Value { return &Value{kind: KindNumber, i: i, f: float64(i), isInt: true} }

// Float returns a floating point number node.
func Float(f float64) *Value { return &Value{kind: KindNumber, f: f} }

// String returns a string node.
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Array returns an array node owning items.
func Array(items ...*Value) *Value {
	arr := make([]*Value, 0, len(items))
	for _, it := range items {
		arr = append(arr, orNull(it))
	}
	return &Value{kind: KindArray, arr: arr}
}

// Object returns an object node owning fields.
func Object(fields map[string]*Value) *Value {
	obj := make(map[string]*Value, len(fields))
	for k, v := range fields {
		obj[k] = orNull(v)
	}
	return &Value{kind: KindObject, obj: obj}
}

func orNull(v *Value) *Value {
	if v == nil {
		return Null()
	}
	return v
}

// Kind returns the node type. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsInteger reports whether v is a number with an integer representation.
func (v *Value) IsInteger() bool {
	return v.Kind() == KindNumber && v.isInt
}

// AsInt returns the integer value of an integer number node.
func (v *Value) AsInt() (int64, bool) {
	if !v.IsInteger() {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the value of any number node.
func (v *Value) AsFloat() (float64, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	if v.isInt {
		return float64(v.i), true
	}
	return v.f, true
}

// AsBool returns the value of a boolean node.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBoolean {
		return false, false
	}
	return v.b, true
}

// AsString returns the value of a string node.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.s, true
}

// Len returns the number of elements of an array or fields of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Index returns the i-th element of an array node.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindArray || i < 0 || i >= len(v.arr) {
		return nil, false
	}
	return v.arr[i], true
}

// Field returns the named field of an object node.
func (v *Value) Field(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Keys returns the field names of an object node in sorted order.
func (v *Value) Keys() []string {
	if v.Kind() != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores child under key, replacing any existing field. v takes
// ownership of child. Returns false if v is not an object.
func (v *Value) Set(key string, child *Value) bool {
	if v.Kind() != KindObject {
		return false
	}
	if v.obj == nil {
		v.obj = make(map[string]*Value)
	}
	v.obj[key] = orNull(child)
	return true
}

// Append adds child to the end of an array node. v takes ownership of
// child. Returns false if v is not an array.
func (v *Value) Append(child *Value) bool {
	if v.Kind() != KindArray {
		return false
	}
	v.arr = append(v.arr, orNull(child))
	return true
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return Null()
	}
	c := *v
	switch v.kind {
	case KindArray:
		c.arr = make([]*Value, len(v.arr))
		for i, it := range v.arr {
			c.arr[i] = it.Clone()
		}
	case KindObject:
		c.obj = make(map[string]*Value, len(v.obj))
		for k, f := range v.obj {
			c.obj[k] = f.Clone()
		}
	}
	return &c
}

// Equal reports whether v and o are structurally equal. Numbers compare by
// value regardless of integer or float representation.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBoolean:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindNumber:
		if v.isInt && o.isInt {
			return v.i == o.i
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, f := range v.obj {
			of, ok := o.obj[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// Merge combines two containers of the same kind into a new node: objects
// take the union of fields (b wins on duplicate keys), arrays concatenate.
// Neither input is modified.
func Merge(a, b *Value) (*Value, bool) {
	switch {
	case a.Kind() == KindObject && b.Kind() == KindObject:
		out := a.Clone()
		for k, f := range b.obj {
			out.obj[k] = f.Clone()
		}
		return out, true
	case a.Kind() == KindArray && b.Kind() == KindArray:
		out := a.Clone()
		for _, it := range b.arr {
			out.arr = append(out.arr, it.Clone())
		}
		return out, true
	default:
		return nil, false
	}
}
