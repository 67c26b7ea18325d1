package host

import (
	"strconv"

	"github.com/Southclaws/pawn-requests/pool"
)

// ArgKind identifies how an argument is marshalled into the host.
type ArgKind uint8

const (
	ArgInt ArgKind = iota
	ArgBool
	ArgString
	ArgHandle
)

func (k ArgKind) String() string {
	switch k {
	case ArgInt:
		return "int"
	case ArgBool:
		return "bool"
	case ArgString:
		return "string"
	case ArgHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Arg is one callback argument.
type Arg struct {
	Kind ArgKind
	I    int32
	B    bool
	S    string
}

func Int(v int32) Arg { return Arg{Kind: ArgInt, I: v} }
func Bool(v bool) Arg { return Arg{Kind: ArgBool, B: v} }
func String(v string) Arg { return Arg{Kind: ArgString, S: v} }
func Handle(h pool.Handle) Arg { return Arg{Kind: ArgHandle, I: int32(h)} }

// Int32 returns the argument as the host's 32-bit cell. Booleans map to
// 0/1; strings have no cell form and yield 0.
func (a Arg) Int32() int32 {
	switch a.Kind {
	case ArgInt, ArgHandle:
		return a.I
	case ArgBool:
		if a.B {
			return 1
		}
	}
	return 0
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgString:
		return strconv.Quote(a.S)
	case ArgBool:
		return strconv.FormatBool(a.B)
	case ArgHandle:
		return "#" + strconv.FormatInt(int64(a.I), 10)
	default:
		return strconv.FormatInt(int64(a.I), 10)
	}
}
