package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseParse,
				Kind:   KindTypeMismatch,
				Path:   []string{"user", "address", "zip"},
				Name:   "JsonGetInt",
				Detail: "want integer",
			},
			contains: []string{"[parse]", "type_mismatch", "user.address.zip", `"JsonGetInt"`, "want integer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHost,
				Kind:  KindHostGone,
			},
			contains: []string{"[host]", "host_gone"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseTransport,
				Kind:   KindTransport,
				Detail: "dial",
				Cause:  errors.New("connection refused"),
			},
			contains: []string{"[transport]", "transport", "dial", "caused by", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseConstruct,
		Kind:  KindInvalidURL,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := New(PhaseHost, KindHostGone).Name("OnResponse").Build()

	if !errors.Is(err, ErrHostGone) {
		t.Error("Is should match sentinel with same phase and kind")
	}
	if errors.Is(err, ErrHostCorrupted) {
		t.Error("Is should not match different kind")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindHostGone}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(errors.New("host_gone")) {
		t.Error("Is should not match foreign errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseConstruct, KindUnsupportedScheme).
		Name("ftp://example.com").
		Path("endpoint").
		Value("ftp").
		Cause(cause).
		Detail("expected %s, got %s", "http", "ftp").
		Build()

	if err.Phase != PhaseConstruct {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseConstruct)
	}
	if err.Kind != KindUnsupportedScheme {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedScheme)
	}
	if err.Name != "ftp://example.com" {
		t.Errorf("Name = %q", err.Name)
	}
	if err.Value != "ftp" {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != "expected http, got ftp" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause not wired")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseDispatch, "client", "12")
		if err.Kind != KindNotFound || err.Name != "12" {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("InvalidURL", func(t *testing.T) {
		cause := errors.New("missing protocol scheme")
		err := InvalidURL(PhaseConstruct, "::bad", cause)
		if err.Kind != KindInvalidURL || !errors.Is(err, cause) {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("UnsupportedScheme", func(t *testing.T) {
		err := UnsupportedScheme(PhaseConstruct, "ftp://x", "ftp")
		if !strings.Contains(err.Detail, "ftp") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhasePool, []string{"items"}, 10, 5)
		if err.Value != 10 || !strings.Contains(err.Detail, "10") || !strings.Contains(err.Detail, "5") {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		data := make([]byte, 64)
		for i := range data {
			data[i] = 0xff
		}
		err := InvalidUTF8(PhaseTransport, data)
		// preview is capped at 32 bytes
		if strings.Count(err.Detail, "ff") != 32 {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Transport", func(t *testing.T) {
		cause := errors.New("eof")
		err := Transport("http://example.com", cause)
		if err.Phase != PhaseTransport || !errors.Is(err, cause) {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(PhaseHost, KindHostCorrupted, cause, "entry point panicked")
		if !errors.Is(err, ErrHostCorrupted) || !errors.Is(err, cause) {
			t.Errorf("unexpected %+v", err)
		}
	})
}
