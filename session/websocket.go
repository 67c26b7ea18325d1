package session

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/pool"
	"github.com/Southclaws/pawn-requests/websocket"
)

// WebSocketClient connects to address and delivers text messages to
// callback as (id, text). The connect is synchronous and bounded by the
// dial timeout.
func (s *Session) WebSocketClient(address, callback string) pool.Handle {
	return s.dial(address, callback, false)
}

// JsonWebSocketClient is WebSocketClient with messages delivered as JSON
// nodes.
func (s *Session) JsonWebSocketClient(address, callback string) pool.Handle {
	return s.dial(address, callback, true)
}

func (s *Session) dial(address, callback string, jsonMode bool) pool.Handle {
	// Reserve the handle first; it is the id the callback receives.
	h := s.sockets.Alloc(nil)
	if !h.Valid() {
		s.log.Error("websocket pool exhausted", zap.String("address", address))
		return pool.Error
	}
	c, err := websocket.Dial(s.factory, address, callback, int32(h), jsonMode, s.bridge, s.nodes,
		websocket.WithLogger(s.log.Named("websocket")),
		websocket.WithDialTimeout(s.dialTimeout),
		websocket.WithReadLimit(s.readLimit),
		websocket.WithQueueSize(s.queueSize),
	)
	if err != nil {
		s.sockets.Remove(h)
		s.log.Error("failed to create websocket client", zap.String("address", address), zap.Error(err))
		return pool.Error
	}
	// The reserved entry is gone if the client was removed or the session
	// closed while connecting.
	if !s.sockets.Set(h, c) {
		c.Close()
		s.log.Warn("websocket client removed while connecting", zap.String("address", address))
		return pool.Error
	}
	return h
}

func (s *Session) socket(id pool.Handle) (*websocket.Client, bool) {
	c, ok := s.sockets.Get(id)
	return c, ok && c != nil
}

// WebSocketSend queues text on the client's connection.
func (s *Session) WebSocketSend(id pool.Handle, data string) int32 {
	c, ok := s.socket(id)
	if !ok {
		return SendUnknown
	}
	return sendResult(c.Send(data))
}

// JsonWebSocketSend serialises node and queues it. node is taken.
func (s *Session) JsonWebSocketSend(id pool.Handle, node pool.Handle) int32 {
	v, ok := s.nodes.Take(node)
	if !ok {
		return SendInvalidNode
	}
	c, ok := s.socket(id)
	if !ok {
		return SendUnknown
	}
	text, err := v.Stringify()
	if err != nil {
		s.log.Error("websocket message could not be encoded", zap.Error(err))
		return SendInvalidNode
	}
	return sendResult(c.Send(text))
}

func sendResult(err error) int32 {
	switch {
	case err == nil:
		return SendOK
	case stderrors.Is(err, errors.ErrQueueFull):
		return SendQueueFull
	default:
		return SendClosed
	}
}

// WebSocketClose closes the connection with a normal closure and releases
// the handle.
func (s *Session) WebSocketClose(id pool.Handle) int32 {
	c, ok := s.sockets.Remove(id)
	if !ok {
		return UnknownNode
	}
	c.Drop()
	return OK
}
