package wasmhost

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/session"
)

// ModuleName is the import module the natives are exported under.
const ModuleName = "requests"

// AllocExport is the guest export used to place string callback arguments
// in guest memory. Signature: (size i32) -> ptr i32.
const AllocExport = "alloc"

// Config holds runtime configuration.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero
	// default.
	MemoryLimitPages uint32
}

// Host runs one core WebAssembly module against a session.
type Host struct {
	rt     wazero.Runtime
	mod    api.Module
	sess   *session.Session
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates a wazero runtime with WASI preview1 and the natives module
// instantiated. Further import modules can be added through Runtime before
// Load.
func New(ctx context.Context, sess *session.Session, cfg *Config) (*Host, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Host{
		rt:     wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		sess:   sess,
		log:    sess.Logger().Named("wasm"),
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, h.rt); err != nil {
		h.Close()
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "instantiate wasi")
	}
	if _, err := h.buildNatives().Instantiate(ctx); err != nil {
		h.Close()
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "instantiate "+ModuleName)
	}
	return h, nil
}

// Runtime returns the underlying wazero runtime.
func (h *Host) Runtime() wazero.Runtime { return h.rt }

// Load instantiates the guest and attaches the host to the session's
// bridge. Start functions are not run; call the entry point with Run.
func (h *Host) Load(name string, wasm []byte) error {
	modCfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	mod, err := h.rt.InstantiateWithConfig(h.ctx, wasm, modCfg)
	if err != nil {
		return errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "instantiate "+name)
	}
	h.mod = mod
	h.sess.Bridge().Attach(h)
	h.log.Debug("module loaded", zap.String("module", name))
	return nil
}

// Run calls an exported function with no arguments on the host thread.
func (h *Host) Run(name string) error {
	return h.sess.Bridge().Enter(func(rt host.Runtime) error {
		return rt.Invoke(name, nil)
	})
}

// Invoke implements host.Runtime. String arguments are copied into memory
// obtained from the guest's alloc export and passed as (ptr, len).
func (h *Host) Invoke(name string, args []host.Arg) error {
	fn := h.mod.ExportedFunction(name)
	if fn == nil {
		return host.MissingEntry(name)
	}

	params := make([]uint64, 0, len(args)+1)
	for _, a := range args {
		if a.Kind != host.ArgString {
			params = append(params, api.EncodeI32(a.Int32()))
			continue
		}
		ptr, err := h.place(a.S)
		if err != nil {
			return err
		}
		params = append(params, api.EncodeU32(ptr), api.EncodeU32(uint32(len(a.S))))
	}

	if _, err := fn.Call(h.ctx, params...); err != nil {
		return errors.New(errors.PhaseHost, errors.KindInvalidData).
			Name(name).
			Cause(err).
			Detail("guest call failed").
			Build()
	}
	return nil
}

// place copies s into guest memory.
func (h *Host) place(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	alloc := h.mod.ExportedFunction(AllocExport)
	if alloc == nil {
		return 0, errors.NotFound(errors.PhaseHost, "export", AllocExport)
	}
	res, err := alloc.Call(h.ctx, api.EncodeU32(uint32(len(s))))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindResourceExhausted, err, "guest alloc")
	}
	ptr := api.DecodeU32(res[0])
	if !h.mod.Memory().WriteString(ptr, s) {
		return 0, errors.OutOfBounds(errors.PhaseHost, []string{AllocExport}, int(ptr), int(h.mod.Memory().Size()))
	}
	return ptr, nil
}

// Closed implements host.Runtime.
func (h *Host) Closed() bool { return h.closed.Load() }

// Close tears the runtime down. A guest call in progress is aborted.
func (h *Host) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.cancel()
	// The runtime context is already cancelled; closing needs a live one.
	if err := h.rt.Close(context.Background()); err != nil {
		h.log.Warn("failed to close wasm runtime", zap.Error(err))
	}
}
