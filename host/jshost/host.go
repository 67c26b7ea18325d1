// Package jshost runs JavaScript scripts against a session using goja.
//
// Natives are installed as global functions named after the session
// methods. Natives with out-parameters take a reference object as their
// last argument and store the result in its value property:
//
//	var ref = {};
//	if (JsonGetString(node, "name", ref) == 0) print(ref.value);
package jshost

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/session"
)

// Host is a goja runtime bound to one session.
type Host struct {
	vm     *goja.Runtime
	sess   *session.Session
	log    *zap.Logger
	out    io.Writer
	closed atomic.Bool
}

// Option configures a Host.
type Option func(*Host)

// WithOutput sets where print writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Host) { h.out = w }
}

// New creates a runtime with the natives installed and attaches it to the
// session's bridge.
func New(sess *session.Session, opts ...Option) *Host {
	h := &Host{
		vm:   goja.New(),
		sess: sess,
		log:  sess.Logger().Named("js"),
		out:  os.Stdout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.install()
	sess.Bridge().Attach(h)
	return h
}

// Invoke implements host.Runtime. It is only ever called by the bridge.
func (h *Host) Invoke(name string, args []host.Arg) error {
	fn, ok := goja.AssertFunction(h.vm.Get(name))
	if !ok {
		return host.MissingEntry(name)
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = h.toValue(a)
	}
	if _, err := fn(goja.Undefined(), vals...); err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindInvalidData, err, "callback "+name+" threw")
	}
	return nil
}

func (h *Host) toValue(a host.Arg) goja.Value {
	switch a.Kind {
	case host.ArgBool:
		return h.vm.ToValue(a.B)
	case host.ArgString:
		return h.vm.ToValue(a.S)
	default:
		return h.vm.ToValue(a.I)
	}
}

// Closed implements host.Runtime.
func (h *Host) Closed() bool { return h.closed.Load() }

// Run executes a script body. name is used in stack traces.
func (h *Host) Run(name, src string) error {
	return h.sess.Bridge().Enter(func(host.Runtime) error {
		_, err := h.vm.RunScript(name, src)
		return err
	})
}

// Eval evaluates src and returns the result rendered as a string.
func (h *Host) Eval(src string) (string, error) {
	var out string
	err := h.sess.Bridge().Enter(func(host.Runtime) error {
		v, err := h.vm.RunString(src)
		if err != nil {
			return err
		}
		if v != nil && !goja.IsUndefined(v) {
			out = v.String()
		}
		return nil
	})
	return out, err
}

// Close stops the runtime. A script still running is interrupted; later
// callbacks report the host as gone.
func (h *Host) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.vm.Interrupt("host closed")
	h.log.Debug("js runtime closed")
}

func (h *Host) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	_, _ = fmt.Fprintln(h.out, strings.Join(parts, " "))
	return goja.Undefined()
}
