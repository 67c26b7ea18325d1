package executor

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/Southclaws/pawn-requests/errors"
)

func TestContext_GoRunsConcurrently(t *testing.T) {
	c, err := Unbounded().New()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// Every task blocks until all of them have started, which only
	// completes if they run at the same time.
	const n = 16
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})
	for i := 0; i < n; i++ {
		if !c.Go("worker", func(context.Context) {
			started.Done()
			<-release
		}) {
			t.Fatal("Go returned false on open context")
		}
	}
	started.Wait()
	if got := c.Active(); got != n {
		t.Errorf("Active() = %d, want %d", got, n)
	}
	close(release)
	c.Wait()
	if got := c.Active(); got != 0 {
		t.Errorf("Active() after Wait = %d", got)
	}
}

func TestContext_CloseCancels(t *testing.T) {
	c, _ := Unbounded().New()

	done := make(chan error, 1)
	c.Go("blocked", func(ctx context.Context) {
		<-ctx.Done()
		done <- ctx.Err()
	})
	c.Close()

	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Fatalf("ctx.Err() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task not cancelled by Close")
	}

	if !c.Closed() {
		t.Error("Closed() = false after Close")
	}
	if c.Go("late", func(context.Context) {}) {
		t.Error("Go after Close should return false")
	}
	c.Close() // idempotent
}

func TestContext_PanicRecovered(t *testing.T) {
	c, _ := Unbounded().New()
	defer c.Close()

	c.Go("boom", func(context.Context) { panic("boom") })
	c.Wait()

	ran := make(chan struct{})
	c.Go("after", func(context.Context) { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("context unusable after a task panicked")
	}
}

func TestContext_CloseFromTask(t *testing.T) {
	c, _ := Unbounded().New()

	c.Go("self-close", func(context.Context) { c.Close() })
	c.Wait()
	if !c.Closed() {
		t.Fatal("Close from task did not take effect")
	}
}

func TestLimited(t *testing.T) {
	f := Limited(2)

	a, err := f.New()
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.New()
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.New()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindResourceExhausted {
		t.Fatalf("third New() error = %v", err)
	}

	a.Close()
	a.Close() // must not release twice
	c, err := f.New()
	if err != nil {
		t.Fatalf("New() after Close = %v", err)
	}
	if _, err := f.New(); err == nil {
		t.Fatal("double Close freed two slots")
	}
	b.Close()
	c.Close()
}
