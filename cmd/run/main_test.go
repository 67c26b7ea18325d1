package main

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/session"
)

type ticker struct {
	ticks   atomic.Int32
	missing bool
}

func (r *ticker) Invoke(name string, _ []host.Arg) error {
	if r.missing {
		return host.MissingEntry(name)
	}
	r.ticks.Add(1)
	return nil
}

func (r *ticker) Closed() bool { return false }

func TestServe_Ticks(t *testing.T) {
	sess := session.New()
	defer sess.Close()
	rt := &ticker{}
	sess.Bridge().Attach(rt)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := serve(ctx, sess, 10*time.Millisecond, "OnTick", zap.NewNop()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if rt.ticks.Load() == 0 {
		t.Fatal("tick function never called")
	}
}

func TestServe_MissingTick(t *testing.T) {
	sess := session.New()
	defer sess.Close()
	sess.Bridge().Attach(&ticker{missing: true})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := serve(ctx, sess, 5*time.Millisecond, "OnTick", zap.NewNop()); err != nil {
		t.Fatalf("missing tick function ended serve: %v", err)
	}
}

func TestServe_HostGone(t *testing.T) {
	sess := session.New()
	sess.Bridge().Attach(&ticker{})
	sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := serve(ctx, sess, 5*time.Millisecond, "OnTick", zap.NewNop())
	if !stderrors.Is(err, errors.ErrHostGone) {
		t.Fatalf("serve after Close = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("loud", "", true); err == nil {
		t.Fatal("bad level accepted")
	}
	log, err := newLogger("debug", t.TempDir()+"/requests.log", true)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("written")
	_ = log.Sync()
}
