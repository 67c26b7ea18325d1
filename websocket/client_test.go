package websocket

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/executor"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
)

type call struct {
	name string
	args []host.Arg
}

type recorder struct {
	calls  chan call
	onCall func(c call)
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan call, 64)}
}

func (r *recorder) Call(name string, args ...host.Arg) error {
	c := call{name: name, args: args}
	if r.onCall != nil {
		r.onCall(c)
	}
	r.calls <- c
	return nil
}

func (r *recorder) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return call{}
	}
}

func newNodes() *pool.GCPool[*jsonvalue.Value] {
	return pool.NewGC((*jsonvalue.Value).Clone)
}

// peer is the server side of a test connection.
type peer struct {
	conns chan *ws.Conn
	done  chan struct{}
	srv   *httptest.Server
}

func newPeer(t *testing.T) *peer {
	t.Helper()
	p := &peer{conns: make(chan *ws.Conn, 1), done: make(chan struct{})}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		p.conns <- conn
		// keep the handler alive until the test is done with conn
		<-p.done
	}))
	t.Cleanup(p.srv.Close)
	t.Cleanup(func() { close(p.done) })
	return p
}

func (p *peer) url() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http")
}

func (p *peer) accept(t *testing.T) *ws.Conn {
	t.Helper()
	select {
	case c := <-p.conns:
		t.Cleanup(func() { _ = c.CloseNow() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("peer never accepted")
		return nil
	}
}

func dial(t *testing.T, p *peer, jsonMode bool, rec *recorder, nodes Nodes) *Client {
	t.Helper()
	c, err := Dial(executor.Unbounded(), p.url(), "OnMessage", 7, jsonMode, rec, nodes)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestDial_Validation(t *testing.T) {
	tests := []struct {
		endpoint string
		kind     errors.Kind
	}{
		{"http://example.com", errors.KindUnsupportedScheme},
		{"example.com/socket", errors.KindUnsupportedScheme},
		{"ws://", errors.KindInvalidURL},
		{"::", errors.KindInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			_, err := Dial(executor.Unbounded(), tt.endpoint, "cb", 1, false, newRecorder(), newNodes())
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	factory := executor.Limited(1)
	_, err := Dial(factory, endpoint, "cb", 1, false, newRecorder(), newNodes(), WithDialTimeout(time.Second))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTransport || e.Phase != errors.PhaseConstruct {
		t.Fatalf("err = %v", err)
	}
	// the failed dial released its execution context
	ctx, err := factory.New()
	if err != nil {
		t.Fatalf("context slot leaked: %v", err)
	}
	ctx.Close()
}

func TestSend_FIFO(t *testing.T) {
	skipRace(t)
	p := newPeer(t)
	c := dial(t, p, false, newRecorder(), newNodes())
	server := p.accept(t)

	msgs := []string{"first", "second", "third"}
	for _, m := range msgs {
		if err := c.Send(m); err != nil {
			t.Fatalf("Send(%q): %v", m, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, want := range msgs {
		typ, data, err := server.Read(ctx)
		if err != nil {
			t.Fatalf("peer read: %v", err)
		}
		if typ != ws.MessageText || string(data) != want {
			t.Fatalf("peer got %v %q, want text %q", typ, data, want)
		}
	}
}

func TestReceive_Text(t *testing.T) {
	p := newPeer(t)
	rec := newRecorder()
	dial(t, p, false, rec, newNodes())
	server := p.accept(t)

	ctx := context.Background()
	if err := server.Write(ctx, ws.MessageBinary, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := server.Write(ctx, ws.MessageText, []byte("hello")); err != nil {
		t.Fatal(err)
	}

	got := rec.next(t)
	if got.name != "OnMessage" || got.args[0].I != 7 || got.args[1].S != "hello" {
		t.Fatalf("callback %s%v", got.name, got.args)
	}
}

func TestReceive_JSON(t *testing.T) {
	p := newPeer(t)
	nodes := newNodes()
	rec := newRecorder()
	var during *jsonvalue.Value
	rec.onCall = func(c call) {
		during, _ = nodes.Get(pool.Handle(c.args[1].I))
	}
	c := dial(t, p, true, rec, nodes)
	server := p.accept(t)

	ctx := context.Background()
	_ = server.Write(ctx, ws.MessageText, []byte(`not json`))
	_ = server.Write(ctx, ws.MessageText, []byte(`{"event":"join"}`))

	got := rec.next(t)
	if got.args[1].Kind != host.ArgHandle {
		t.Fatalf("arg kind = %s", got.args[1].Kind)
	}
	want := jsonvalue.Object(map[string]*jsonvalue.Value{"event": jsonvalue.String("join")})
	if !during.Equal(want) {
		t.Fatalf("node = %s", during)
	}

	_ = server.CloseNow()
	c.Wait()
	if nodes.Len() != 0 {
		t.Fatalf("pool holds %d nodes after callback", nodes.Len())
	}
}

func TestPeerClose_Terminates(t *testing.T) {
	p := newPeer(t)
	c := dial(t, p, false, newRecorder(), newNodes())
	server := p.accept(t)

	if c.State() != Running {
		t.Fatalf("State = %s", c.State())
	}
	_ = server.Close(ws.StatusNormalClosure, "bye")
	c.Wait()

	if c.State() != Terminated {
		t.Fatalf("State = %s after peer close", c.State())
	}
	if err := c.Send("late"); !stderrors.Is(err, errors.ErrClosed) {
		t.Fatalf("Send after close err = %v", err)
	}
}

func TestClose(t *testing.T) {
	p := newPeer(t)
	c := dial(t, p, false, newRecorder(), newNodes())
	server := p.accept(t)

	readErr := make(chan error, 1)
	go func() {
		_, _, err := server.Read(context.Background())
		readErr <- err
	}()

	c.Close()
	c.Close()
	if c.State() != Terminated {
		t.Fatal("State not terminated after Close")
	}

	select {
	case err := <-readErr:
		if ws.CloseStatus(err) != ws.StatusNormalClosure {
			t.Fatalf("peer saw %v, want normal closure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("peer never saw the close")
	}
	c.Wait()
}

func TestClose_Handshake(t *testing.T) {
	p := newPeer(t)
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := Dial(executor.Unbounded(), p.url(), "OnMessage", 7, false, newRecorder(), newNodes(),
		WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server := p.accept(t)

	// the peer answers the close frame from inside Read
	readErr := make(chan error, 1)
	go func() {
		_, _, err := server.Read(context.Background())
		readErr <- err
	}()

	c.Close()
	c.Wait()

	select {
	case err := <-readErr:
		if ws.CloseStatus(err) != ws.StatusNormalClosure {
			t.Fatalf("peer saw %v, want normal closure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("peer never saw the close")
	}
	if n := logs.FilterMessage("close handshake failed").Len(); n != 0 {
		t.Fatalf("handshake aborted: %v", logs.FilterMessage("close handshake failed").All()[0].Context)
	}
}

func TestOutbox(t *testing.T) {
	o := newOutbox(DefaultQueueSize)

	if _, ok := o.pop(); ok {
		t.Fatal("pop on empty outbox succeeded")
	}

	var pushed int
	for ; pushed < 2*DefaultQueueSize; pushed++ {
		if err := o.push("m"); err != nil {
			if !stderrors.Is(err, errors.ErrQueueFull) {
				t.Fatalf("push err = %v", err)
			}
			break
		}
	}
	if pushed == 2*DefaultQueueSize {
		t.Fatal("outbox never reported full")
	}
	if pushed < DefaultQueueSize {
		t.Fatalf("outbox full after %d messages", pushed)
	}

	select {
	case <-o.ready:
	default:
		t.Fatal("push did not signal the writer")
	}

	o2 := newOutbox(DefaultQueueSize)
	_ = o2.push("a")
	_ = o2.push("b")
	if m, _ := o2.pop(); m != "a" {
		t.Fatalf("pop = %q, want a", m)
	}
	if m, _ := o2.pop(); m != "b" {
		t.Fatalf("pop = %q, want b", m)
	}
}
