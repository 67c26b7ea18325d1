package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/executor"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/host/jshost"
	"github.com/Southclaws/pawn-requests/host/wasmhost"
	"github.com/Southclaws/pawn-requests/request"
	"github.com/Southclaws/pawn-requests/session"
	"github.com/Southclaws/pawn-requests/websocket"
)

type options struct {
	script      string
	wasm        string
	entry       string
	tick        time.Duration
	tickFunc    string
	maxClients  int
	dialTimeout time.Duration
	memPages    uint
}

func main() {
	var (
		o           options
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFile     = flag.String("log-file", "requests.log", "Log file, empty for stderr only")
		interactive = flag.Bool("i", false, "Interactive JavaScript console")
	)
	flag.StringVar(&o.script, "script", "", "Path to a JavaScript script")
	flag.StringVar(&o.wasm, "wasm", "", "Path to a core wasm module")
	flag.StringVar(&o.entry, "entry", "", "Function to call once loaded (wasm default _start)")
	flag.DurationVar(&o.tick, "tick", 0, "Call the tick function at this interval")
	flag.StringVar(&o.tickFunc, "tick-func", "OnTick", "Tick function name")
	flag.IntVar(&o.maxClients, "max-clients", 0, "Maximum live clients and sockets, 0 for no limit")
	flag.DurationVar(&o.dialTimeout, "dial-timeout", websocket.DefaultDialTimeout, "WebSocket dial timeout")
	flag.UintVar(&o.memPages, "memory-pages", 0, "Guest memory limit in 64KB pages")
	flag.Parse()

	if !*interactive && (o.script == "") == (o.wasm == "") {
		fmt.Fprintln(os.Stderr, "Usage: run -script <file.js> [-entry name] [-tick 100ms]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> [-entry name] [-tick 100ms]")
		fmt.Fprintln(os.Stderr, "       run -i [-script <file.js>]  (interactive mode)")
		os.Exit(1)
	}

	log, err := newLogger(*logLevel, *logFile, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	executor.SetLogger(log.Named("executor"))
	request.SetLogger(log.Named("request"))
	websocket.SetLogger(log.Named("websocket"))
	host.SetLogger(log.Named("host"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *interactive {
		err = runInteractive(newSession(o, log), o.script)
	} else {
		err = run(ctx, o, log)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger logs to stderr and path. The console owns the terminal in
// interactive mode, so only the file is written then.
func newLogger(level, path string, quiet bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = nil
	if !quiet {
		cfg.OutputPaths = append(cfg.OutputPaths, "stderr")
	}
	if path != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, path)
	}
	cfg.ErrorOutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named("requests"), nil
}

func newSession(o options, log *zap.Logger) *session.Session {
	factory := executor.Unbounded()
	if o.maxClients > 0 {
		factory = executor.Limited(o.maxClients)
	}
	return session.New(
		session.WithLogger(log),
		session.WithFactory(factory),
		session.WithDialTimeout(o.dialTimeout),
	)
}

func run(ctx context.Context, o options, log *zap.Logger) error {
	sess := newSession(o, log)
	defer sess.Close()

	switch {
	case o.script != "":
		src, err := os.ReadFile(o.script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		h := jshost.New(sess)
		defer h.Close()
		if err := h.Run(o.script, string(src)); err != nil {
			return fmt.Errorf("run %s: %w", o.script, err)
		}
		if o.entry != "" {
			if err := sess.Bridge().Call(o.entry); err != nil {
				return fmt.Errorf("call %s: %w", o.entry, err)
			}
		}

	default:
		data, err := os.ReadFile(o.wasm)
		if err != nil {
			return fmt.Errorf("read module: %w", err)
		}
		h, err := wasmhost.New(ctx, sess, &wasmhost.Config{MemoryLimitPages: uint32(o.memPages)})
		if err != nil {
			return err
		}
		defer h.Close()
		if err := h.Load(filepath.Base(o.wasm), data); err != nil {
			return err
		}
		entry := o.entry
		if entry == "" {
			entry = "_start"
		}
		err = h.Run(entry)
		switch {
		case err == nil:
		case o.entry == "" && stderrors.Is(err, errors.ErrMissingEntry):
			log.Debug("module has no _start")
		default:
			return fmt.Errorf("call %s: %w", entry, err)
		}
	}

	log.Info("host running", zap.String("session", sess.ID()))
	return serve(ctx, sess, o.tick, o.tickFunc, log)
}

// serve drives the tick function until ctx is cancelled. Callbacks from
// requests and sockets arrive on their own in the meantime.
func serve(ctx context.Context, sess *session.Session, every time.Duration, name string, log *zap.Logger) error {
	var tick <-chan time.Time
	if every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-tick:
			err := sess.Bridge().Call(name)
			switch {
			case err == nil:
			case stderrors.Is(err, errors.ErrMissingEntry):
				tick = nil
			case stderrors.Is(err, errors.ErrHostGone), stderrors.Is(err, errors.ErrHostCorrupted):
				return err
			}
		}
	}
}
