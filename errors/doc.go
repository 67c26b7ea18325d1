// Package errors provides structured error types for the requests runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending name (entry point, URL, header), a JSON
// key path where relevant, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindInvalidURL).
//		Name(endpoint).
//		Detail("endpoint must be absolute").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedScheme(errors.PhaseConstruct, endpoint, "ftp")
//	err := errors.NotFound(errors.PhaseDispatch, "client", "7")
//
// Sentinels (ErrHostGone, ErrHostCorrupted, ErrMissingEntry, ErrClosed,
// ErrQueueFull) match any error with the same phase and kind through errors.Is.
package errors
