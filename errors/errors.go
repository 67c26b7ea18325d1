package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhasePool      Phase = "pool"      // handle table operations
	PhaseConstruct Phase = "construct" // client construction
	PhaseDispatch  Phase = "dispatch"  // synchronous request/send submission
	PhaseTransport Phase = "transport" // network I/O inside background tasks
	PhaseHost      Phase = "host"      // re-entry into the script host
	PhaseParse     Phase = "parse"     // JSON parsing
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidURL        Kind = "invalid_url"
	KindUnsupportedScheme Kind = "unsupported_scheme"
	KindResourceExhausted Kind = "resource_exhausted"
	KindHostGone          Kind = "host_gone"
	KindHostCorrupted     Kind = "host_corrupted"
	KindMissingEntry      Kind = "missing_entry"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindInvalidData       Kind = "invalid_data"
	KindClosed            Kind = "closed"
	KindQueueFull         Kind = "queue_full"
	KindTransport         Kind = "transport"
)

// Sentinels for errors.Is. Only Phase and Kind take part in matching.
var (
	ErrHostGone      = &Error{Phase: PhaseHost, Kind: KindHostGone}
	ErrHostCorrupted = &Error{Phase: PhaseHost, Kind: KindHostCorrupted}
	ErrMissingEntry  = &Error{Phase: PhaseHost, Kind: KindMissingEntry}
	ErrClosed        = &Error{Phase: PhaseDispatch, Kind: KindClosed}
	ErrQueueFull     = &Error{Phase: PhaseDispatch, Kind: KindQueueFull}
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Name   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%q", e.Name))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the JSON key path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Name sets the offending name (entry point, URL, header, ...)
func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error for an unknown handle or name
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Name:   name,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidURL creates an error for a malformed or non-absolute URL
func InvalidURL(phase Phase, raw string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidURL,
		Name:   raw,
		Detail: "malformed or relative URL",
		Cause:  cause,
	}
}

// UnsupportedScheme creates an error for a URL whose scheme the client cannot serve
func UnsupportedScheme(phase Phase, raw, scheme string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedScheme,
		Name:   raw,
		Detail: fmt.Sprintf("scheme %q not supported", scheme),
		Value:  scheme,
	}
}

// Exhausted creates a resource exhaustion error
func Exhausted(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindResourceExhausted,
		Detail: detail,
	}
}

// Transport wraps a network failure observed inside a background task
func Transport(name string, cause error) *Error {
	return &Error{
		Phase: PhaseTransport,
		Kind:  KindTransport,
		Name:  name,
		Cause: cause,
	}
}

// TypeMismatch creates a type mismatch error for a JSON node
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
