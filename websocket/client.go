package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"code.hybscloud.com/atomix"
	ws "github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/executor"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
)

const (
	// DefaultDialTimeout bounds the synchronous connect in Dial.
	DefaultDialTimeout = 10 * time.Second
	// DefaultReadLimit is the largest inbound message accepted.
	DefaultReadLimit = 1 << 20
)

// State is the lifecycle of a client.
type State int32

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "terminated"
}

// Caller delivers inbound messages to the script. *host.Bridge implements
// it.
type Caller interface {
	Call(name string, args ...host.Arg) error
}

// Nodes stores parsed JSON messages for the duration of a callback.
type Nodes interface {
	Alloc(v *jsonvalue.Value) pool.Handle
	Collect(h pool.Handle) bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client's tasks.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithDialTimeout bounds the connect performed by Dial.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithReadLimit sets the largest inbound message in bytes.
func WithReadLimit(n int64) Option {
	return func(c *Client) { c.readLimit = n }
}

// WithQueueSize sets the capacity of the outgoing queue. Sends beyond it
// fail with ErrQueueFull until the writer catches up.
func WithQueueSize(n int) Option {
	return func(c *Client) { c.queueSize = n }
}

// WithHeaders adds headers to the opening handshake.
func WithHeaders(h http.Header) Option {
	return func(c *Client) { c.headers = h.Clone() }
}

// WithHTTPClient sets the HTTP client used for the opening handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client is one WebSocket connection owned by a script.
type Client struct {
	id       int32
	callback string
	jsonMode bool
	endpoint string

	conn   *ws.Conn
	exec   *executor.Context
	out    *outbox
	caller Caller
	nodes  Nodes
	log    *zap.Logger

	dialTimeout time.Duration
	readLimit   int64
	queueSize   int
	headers     http.Header
	httpClient  *http.Client

	terminated atomix.Uint32
	closing    atomix.Uint32
	closeOnce  sync.Once
}

// Dial connects to endpoint and starts the reader and writer tasks. id is
// passed back to the script as the first callback argument.
func Dial(factory executor.Factory, endpoint, callback string, id int32, jsonMode bool, caller Caller, nodes Nodes, opts ...Option) (*Client, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	c := &Client{
		id:          id,
		callback:    callback,
		jsonMode:    jsonMode,
		endpoint:    endpoint,
		caller:      caller,
		nodes:       nodes,
		dialTimeout: DefaultDialTimeout,
		readLimit:   DefaultReadLimit,
		queueSize:   DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = Logger()
	}
	c.log = c.log.With(zap.String("endpoint", endpoint), zap.Int32("client", id))

	exec, err := factory.New()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(exec.Context(), c.dialTimeout)
	conn, _, err := ws.Dial(ctx, endpoint, &ws.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: c.headers,
	})
	cancel()
	if err != nil {
		exec.Close()
		return nil, errors.New(errors.PhaseConstruct, errors.KindTransport).
			Name(endpoint).
			Cause(err).
			Detail("dial").
			Build()
	}
	conn.SetReadLimit(c.readLimit)

	c.conn = conn
	c.exec = exec
	c.out = newOutbox(c.queueSize)

	exec.Go("websocket-reader", c.readLoop)
	exec.Go("websocket-writer", c.writeLoop)
	c.log.Debug("websocket connected")
	return c, nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.InvalidURL(errors.PhaseConstruct, raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	default:
		return errors.UnsupportedScheme(errors.PhaseConstruct, raw, u.Scheme)
	}
	if u.Host == "" {
		return errors.InvalidURL(errors.PhaseConstruct, raw, nil)
	}
	return nil
}

// ID returns the id passed to Dial.
func (c *Client) ID() int32 { return c.id }

// State reports whether the client is still running.
func (c *Client) State() State {
	if c.terminated.Load() > 0 {
		return Terminated
	}
	return Running
}

// Send queues data to be written as a text frame. It never waits for the
// network.
func (c *Client) Send(data string) error {
	if c.State() == Terminated {
		return errors.ErrClosed
	}
	return c.out.push(data)
}

// Close sends a normal closure to the peer and tears the client down. It
// returns without waiting for the closing handshake.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closing.Store(1)
		c.markTerminated()
		spawned := c.exec.Go("websocket-close", func(context.Context) {
			if err := c.conn.Close(ws.StatusNormalClosure, ""); err != nil {
				c.log.Debug("close handshake failed", zap.Error(err))
			}
			c.exec.Close()
		})
		if !spawned {
			_ = c.conn.CloseNow()
		}
	})
}

// Wait blocks until the client's tasks have returned.
func (c *Client) Wait() {
	c.exec.Wait()
}

func (c *Client) markTerminated() bool {
	return c.terminated.Add(1) == 1
}

// terminate ends the client after a task stopped on its own. A closing
// handshake started by Close is left to finish.
func (c *Client) terminate() {
	c.markTerminated()
	c.exec.Close()
	if c.closing.Load() == 0 {
		_ = c.conn.CloseNow()
	}
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.terminate()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.log.Debug("reader stopped, client closed")
			case ws.CloseStatus(err) != -1:
				c.log.Info("connection closed by peer",
					zap.Int("status", int(ws.CloseStatus(err))))
			default:
				c.log.Warn("read failed", zap.Error(errors.Transport(c.endpoint, err)))
			}
			return
		}
		if typ != ws.MessageText {
			c.log.Debug("binary frame dropped", zap.Int("size", len(data)))
			continue
		}
		if !utf8.Valid(data) {
			c.log.Warn("text frame dropped", zap.Error(errors.InvalidUTF8(errors.PhaseTransport, data)))
			continue
		}
		c.deliver(string(data))
	}
}

func (c *Client) deliver(text string) {
	if !c.jsonMode {
		_ = c.caller.Call(c.callback, host.Int(c.id), host.String(text))
		return
	}

	node, err := jsonvalue.ParseString(text)
	if err != nil {
		c.log.Error("message is not valid JSON, callback skipped", zap.Error(err))
		return
	}
	h := c.nodes.Alloc(node)
	if !h.Valid() {
		c.log.Error("json pool exhausted, callback skipped")
		return
	}
	_ = c.caller.Call(c.callback, host.Int(c.id), host.Handle(h))
	c.nodes.Collect(h)
}

func (c *Client) writeLoop(ctx context.Context) {
	defer c.terminate()

	for {
		for {
			msg, ok := c.out.pop()
			if !ok {
				break
			}
			if err := c.conn.Write(ctx, ws.MessageText, []byte(msg)); err != nil {
				if ctx.Err() == nil {
					c.log.Warn("write failed", zap.Error(errors.Transport(c.endpoint, err)))
				}
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-c.out.ready:
		}
	}
}

// Drop implements pool.Dropper. A nil client is a placeholder entry and is
// ignored.
func (c *Client) Drop() {
	if c != nil {
		c.Close()
	}
}
