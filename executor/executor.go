package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
)

// Factory creates execution contexts.
type Factory interface {
	New() (*Context, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func() (*Context, error)

func (f FactoryFunc) New() (*Context, error) { return f() }

// Unbounded returns a factory that never fails.
func Unbounded() Factory {
	return FactoryFunc(func() (*Context, error) {
		return newContext(nil), nil
	})
}

// Limited returns a factory that allows at most n live contexts. Closing a
// context frees its slot.
func Limited(n int) Factory {
	return &limited{max: n}
}

type limited struct {
	mu   sync.Mutex
	live int
	max  int
}

func (l *limited) New() (*Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live >= l.max {
		return nil, errors.Exhausted(errors.PhaseConstruct,
			fmt.Sprintf("execution context limit of %d reached", l.max))
	}
	l.live++
	return newContext(l.release), nil
}

func (l *limited) release() {
	l.mu.Lock()
	l.live--
	l.mu.Unlock()
}

// Context runs background tasks until closed.
type Context struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()

	mu     sync.Mutex // orders closed against wg.Add
	closed bool
	wg     sync.WaitGroup
	active atomic.Int32
	once   sync.Once
}

func newContext(release func()) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{ctx: ctx, cancel: cancel, release: release}
}

// Go spawns fn on a new goroutine and returns immediately. A panic inside
// fn is recovered and logged. Returns false if the context is closed.
func (c *Context) Go(name string, fn func(ctx context.Context)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		Logger().Debug("spawn on closed context", zap.String("task", name))
		return false
	}
	c.wg.Add(1)
	c.active.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer c.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("task panicked",
					zap.String("task", name),
					zap.Any("panic", r),
					zap.Stack("stack"))
			}
		}()
		fn(c.ctx)
	}()
	return true
}

// Close cancels every task's context and releases the factory slot. It
// does not wait for tasks to return and is safe to call from a task.
func (c *Context) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		if c.release != nil {
			c.release()
		}
	})
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Wait blocks until every spawned task has returned. Calling it from a
// task deadlocks.
func (c *Context) Wait() {
	c.wg.Wait()
}

// Active returns the number of running tasks.
func (c *Context) Active() int {
	return int(c.active.Load())
}

// Context returns the context handed to tasks.
func (c *Context) Context() context.Context {
	return c.ctx
}
