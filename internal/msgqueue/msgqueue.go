// Package msgqueue serializes status message delivery to a single sink.
//
// Producers may call Add concurrently; a dedicated consumer goroutine
// drains the queue one message at a time, so the sink observes messages
// in exactly the order Add was invoked. A delivery in progress always
// runs to completion before the next one starts; interrupting an
// in-flight delivery is the sink's responsibility, not the queue's.
package msgqueue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives message chunks. Deliver blocks until the chunk has been
// handled; the queue does not start the next message until the current
// delivery fully completes.
type Sink interface {
	Deliver(ctx context.Context, chunk string) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, chunk string) error

func (f SinkFunc) Deliver(ctx context.Context, chunk string) error { return f(ctx, chunk) }

// Options controls how a single message is delivered.
type Options struct {
	// WordDelay paces delivery word by word with the given gap between
	// words. Zero delivers the message as one chunk.
	WordDelay time.Duration

	// LeadingSpace and TrailingSpace emit literal separator chunks
	// around the message.
	LeadingSpace  bool
	TrailingSpace bool
}

type entry struct {
	id   string
	sink Sink
	msg  string
	opts Options
}

// Queue is an ordered message queue with one consumer goroutine.
type Queue struct {
	logger *slog.Logger

	mu     sync.Mutex
	idle   *sync.Cond
	items  []entry
	busy   bool
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New creates a Queue and starts its consumer. If logger is nil,
// slog.Default() is used.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	go q.drain()
	return q
}

// Add enqueues message for in-order delivery to sink. It is safe for
// concurrent use: messages are delivered in exactly the order Add is
// called, regardless of how producers interleave.
func (q *Queue) Add(sink Sink, message string, opts Options) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, entry{
		id:   uuid.NewString(),
		sink: sink,
		msg:  message,
		opts: opts,
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until every queued message has been fully delivered.
func (q *Queue) Wait() {
	q.mu.Lock()
	for len(q.items) > 0 || q.busy {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// Close stops the consumer after any in-flight delivery completes.
// Messages added after Close are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
}

// Len returns the approximate number of messages queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			q.busy = false
			q.idle.Broadcast()
			q.mu.Unlock()

			select {
			case <-q.wake:
			case <-q.done:
				return
			}

			q.mu.Lock()
		}

		e := q.items[0]
		q.items = q.items[1:]
		q.busy = true
		q.mu.Unlock()

		if err := q.deliver(e); err != nil {
			q.logger.Error("message delivery failed",
				slog.String("message_id", e.id),
				slog.Any("error", err),
			)
		}
	}
}

func (q *Queue) deliver(e entry) error {
	// No cancellation at this layer: a delivery runs to completion.
	ctx := context.Background()

	if e.opts.LeadingSpace {
		if err := e.sink.Deliver(ctx, " "); err != nil {
			return err
		}
	}

	if e.opts.WordDelay <= 0 {
		if err := e.sink.Deliver(ctx, e.msg); err != nil {
			return err
		}
	} else {
		for i, word := range strings.Fields(e.msg) {
			if i > 0 {
				time.Sleep(e.opts.WordDelay)
				word = " " + word
			}
			if err := e.sink.Deliver(ctx, word); err != nil {
				return err
			}
		}
	}

	if e.opts.TrailingSpace {
		return e.sink.Deliver(ctx, " ")
	}
	return nil
}
