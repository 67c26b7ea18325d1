package jsonvalue

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cybergodev/json"

	"github.com/Southclaws/pawn-requests/errors"
)

// Parse decodes a complete JSON document. Trailing data after the first
// value is an error.
func Parse(data []byte) (v *Value, err error) {
	// The decoder cannot assign a top-level null to an interface target.
	if bytes.Equal(bytes.Trim(data, " \t\r\n"), []byte("null")) {
		return Null(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.ParseFailed("json", fmt.Errorf("decoder panic: %v", r))
		}
	}()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.ParseFailed("json", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Name("json").
				Detail("unexpected data after top-level value").
				Build()
		}
		return nil, errors.ParseFailed("json", err)
	}
	return fromAny(raw)
}

// ParseString is Parse for string input.
func ParseString(s string) (*Value, error) {
	return Parse([]byte(s))
}

func fromAny(raw any) (*Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return fromNumber(string(x))
	case float64:
		return Float(x), nil
	case []any:
		arr := make([]*Value, 0, len(x))
		for _, it := range x {
			v, err := fromAny(it)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return &Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]*Value, len(x))
		for k, it := range x {
			v, err := fromAny(it)
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return &Value{kind: KindObject, obj: obj}, nil
	default:
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Value(raw).
			Detail("unexpected decoded type %T", raw).
			Build()
	}
}

func fromNumber(lit string) (*Value, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, errors.ParseFailed("number "+lit, err)
	}
	return Float(f), nil
}

// MarshalJSON renders v as compact JSON with object keys sorted.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stringify renders v as compact JSON.
func (v *Value) Stringify() (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "stringify")
	}
	return string(b), nil
}

// String implements fmt.Stringer. Encoding errors render as an empty string.
func (v *Value) String() string {
	s, _ := v.Stringify()
	return s
}

// encode writes v to buf. Numbers are written directly so the integer and
// float forms survive; strings go through the codec for escaping.
func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBoolean:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindString:
		return encodeString(buf, v.s)
	case KindNumber:
		switch {
		case v.isInt:
			buf.WriteString(strconv.FormatInt(v.i, 10))
		case math.IsNaN(v.f) || math.IsInf(v.f, 0):
			buf.WriteString("null")
		default:
			buf.WriteString(formatFloat(v.f))
		}
	case KindArray:
		buf.WriteByte('[')
		for i, it := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := orNull(it).encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := orNull(v.obj[k]).encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// formatFloat keeps a fractional marker on integral floats so that a
// float survives a stringify/parse round trip as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
