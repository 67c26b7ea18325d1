package host

import (
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
)

// Runtime is a loaded script that can be called into.
type Runtime interface {
	// Invoke runs the named entry point synchronously. It returns an error
	// matching errors.ErrMissingEntry if the script does not define it.
	Invoke(name string, args []Arg) error
	// Closed reports whether the runtime has been torn down.
	Closed() bool
}

// MissingEntry builds the error a Runtime returns for an undefined entry
// point.
func MissingEntry(name string) error {
	return errors.New(errors.PhaseHost, errors.KindMissingEntry).
		Name(name).
		Detail("entry point not defined").
		Build()
}

// Bridge serializes every entry into a Runtime.
type Bridge struct {
	mu       sync.Mutex
	rt       Runtime
	detached atomic.Bool
	poisoned atomic.Bool
	log      *zap.Logger
}

// NewBridge returns an unattached bridge. A nil logger uses Logger().
func NewBridge(log *zap.Logger) *Bridge {
	if log == nil {
		log = Logger()
	}
	return &Bridge{log: log}
}

// Attach makes rt the target of future calls. It waits for any call in
// progress, so it must not be called from inside a callback.
func (b *Bridge) Attach(rt Runtime) {
	b.mu.Lock()
	b.rt = rt
	b.detached.Store(false)
	b.mu.Unlock()
}

// Detach makes every later call report ErrHostGone. It never blocks, so
// the host may call it from inside a callback while unloading.
func (b *Bridge) Detach() {
	b.detached.Store(true)
}

// Poisoned reports whether a call has panicked inside the host.
func (b *Bridge) Poisoned() bool {
	return b.poisoned.Load()
}

// Call invokes the named entry point with args.
func (b *Bridge) Call(name string, args ...Arg) error {
	err := b.Enter(func(rt Runtime) error {
		return rt.Invoke(name, args)
	})
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrMissingEntry):
		b.log.Warn("callback not defined", zap.String("callback", name))
	case stderrors.Is(err, errors.ErrHostGone):
		b.log.Debug("callback dropped, host gone", zap.String("callback", name))
	default:
		b.log.Error("callback failed", zap.String("callback", name), zap.Error(err))
	}
	return err
}

// Enter runs fn on the attached runtime while holding the host lock. The
// embedder uses it for host-thread work such as running the script's main
// body or a tick, so that callbacks never interleave with it.
func (b *Bridge) Enter(fn func(Runtime) error) (err error) {
	if b.poisoned.Load() {
		return errors.ErrHostCorrupted
	}
	if b.detached.Load() {
		return errors.ErrHostGone
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// State may have changed while waiting for the lock.
	if b.poisoned.Load() {
		return errors.ErrHostCorrupted
	}
	if b.detached.Load() || b.rt == nil || b.rt.Closed() {
		return errors.ErrHostGone
	}

	defer func() {
		if r := recover(); r != nil {
			b.poisoned.Store(true)
			b.log.Error("host panicked, bridge poisoned",
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = errors.Wrap(errors.PhaseHost, errors.KindHostCorrupted,
				fmt.Errorf("panic: %v", r), "entry point panicked")
		}
	}()
	return fn(b.rt)
}
