package websocket

import (
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"

	"github.com/Southclaws/pawn-requests/errors"
)

// DefaultQueueSize is the capacity of a client's outgoing queue.
const DefaultQueueSize = 4096

// outbox is the outgoing message queue. The host side produces under mu;
// the writer task is the only consumer.
type outbox struct {
	mu    sync.Mutex
	ring  lfq.SPSC[string]
	ready chan struct{}
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	o := &outbox{ready: make(chan struct{}, 1)}
	o.ring.Init(size)
	return o
}

// push enqueues msg and wakes the writer.
func (o *outbox) push(msg string) error {
	o.mu.Lock()
	err := o.ring.Enqueue(&msg)
	o.mu.Unlock()
	if err != nil {
		if iox.IsWouldBlock(err) {
			return errors.ErrQueueFull
		}
		return errors.Wrap(errors.PhaseDispatch, errors.KindQueueFull, err, "enqueue")
	}
	select {
	case o.ready <- struct{}{}:
	default:
	}
	return nil
}

// pop dequeues the oldest message. ok is false when the queue is empty.
func (o *outbox) pop() (string, bool) {
	msg, err := o.ring.Dequeue()
	if err != nil {
		return "", false
	}
	return msg, true
}
