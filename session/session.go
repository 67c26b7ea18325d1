package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/executor"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
	"github.com/Southclaws/pawn-requests/request"
	"github.com/Southclaws/pawn-requests/websocket"
)

// Session is everything one loaded script owns: its bridge, its pools and
// its network clients. Natives are methods on Session and are meant to be
// called from the host thread.
type Session struct {
	id     string
	bridge *host.Bridge
	log    *zap.Logger

	nodes   *pool.GCPool[*jsonvalue.Value]
	headers *pool.GCPool[http.Header]
	clients *pool.Pool[*request.Client]
	sockets *pool.Pool[*websocket.Client]

	factory         executor.Factory
	httpClient      *http.Client
	dialTimeout     time.Duration
	readLimit       int64
	queueSize       int
	failureCallback string
	observers       []pool.Observer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the parent logger. The session adds its own id field.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithFactory sets where clients get their execution contexts.
func WithFactory(f executor.Factory) Option {
	return func(s *Session) { s.factory = f }
}

// WithHTTPClient sets the HTTP client shared by every request client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// WithDialTimeout bounds WebSocket connects.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Session) { s.dialTimeout = d }
}

// WithReadLimit caps inbound WebSocket messages in bytes.
func WithReadLimit(n int64) Option {
	return func(s *Session) { s.readLimit = n }
}

// WithQueueSize sets each WebSocket client's outgoing queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Session) { s.queueSize = n }
}

// WithObserver subscribes obs to every pool the session creates.
func WithObserver(obs pool.Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, obs) }
}

// WithFailureCallback renames the request failure callback.
func WithFailureCallback(name string) Option {
	return func(s *Session) { s.failureCallback = name }
}

// New creates a session with an unattached bridge. The embedder attaches
// its runtime through Bridge.
func New(opts ...Option) *Session {
	s := &Session{
		id:              uuid.NewString(),
		factory:         executor.Unbounded(),
		dialTimeout:     websocket.DefaultDialTimeout,
		readLimit:       websocket.DefaultReadLimit,
		queueSize:       websocket.DefaultQueueSize,
		failureCallback: request.DefaultFailureCallback,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("session", s.id))
	s.bridge = host.NewBridge(s.log.Named("bridge"))

	s.nodes = pool.NewGC((*jsonvalue.Value).Clone)
	s.headers = pool.NewGC(http.Header.Clone)
	s.clients = pool.New[*request.Client]()
	s.sockets = pool.New[*websocket.Client]()

	s.nodes.Subscribe(s.poolLogger("json"))
	s.headers.Subscribe(s.poolLogger("headers"))
	s.clients.Subscribe(s.poolLogger("client"))
	s.sockets.Subscribe(s.poolLogger("websocket"))
	for _, obs := range s.observers {
		s.nodes.Subscribe(obs)
		s.headers.Subscribe(obs)
		s.clients.Subscribe(obs)
		s.sockets.Subscribe(obs)
	}
	return s
}

func (s *Session) poolLogger(name string) pool.Observer {
	log := s.log.Named(name)
	return pool.ObserverFunc(func(e pool.Event) {
		log.Debug("pool entry "+e.Type.String(), zap.Int32("handle", int32(e.Handle)))
	})
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Bridge returns the bridge every callback goes through.
func (s *Session) Bridge() *host.Bridge { return s.bridge }

// Logger returns the session's logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// Nodes returns the JSON node pool.
func (s *Session) Nodes() *pool.GCPool[*jsonvalue.Value] { return s.nodes }

// Close detaches the bridge, tears down every client and empties the
// pools. Callbacks still in flight report host gone and are dropped.
func (s *Session) Close() {
	s.bridge.Detach()
	s.sockets.Each(func(h pool.Handle, c *websocket.Client) bool {
		s.log.Debug("closing open websocket",
			zap.Int32("handle", int32(h)), zap.Stringer("state", c.State()))
		return true
	})
	s.clients.Clear()
	s.sockets.Clear()
	s.nodes.Clear()
	s.headers.Clear()
	s.log.Debug("session closed")
}
