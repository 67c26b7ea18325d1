package request

import (
	"net/http"
)

// Method is the host-visible HTTP method code.
type Method int32

const (
	MethodGet Method = iota
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodConnect
	MethodOptions
	MethodTrace
	MethodPatch
)

var methodNames = [...]string{
	MethodGet:     http.MethodGet,
	MethodHead:    http.MethodHead,
	MethodPost:    http.MethodPost,
	MethodPut:     http.MethodPut,
	MethodDelete:  http.MethodDelete,
	MethodConnect: http.MethodConnect,
	MethodOptions: http.MethodOptions,
	MethodTrace:   http.MethodTrace,
	MethodPatch:   http.MethodPatch,
}

// Valid reports whether m names a known method.
func (m Method) Valid() bool {
	return m >= 0 && int(m) < len(methodNames)
}

func (m Method) String() string {
	if !m.Valid() {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// Methods returns every method in code order.
func Methods() []Method {
	out := make([]Method, len(methodNames))
	for i := range out {
		out[i] = Method(i)
	}
	return out
}
