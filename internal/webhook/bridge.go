package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultCapacity is the per-subscriber buffer size.
const DefaultCapacity = 100

var (
	// ErrSubscriptionClosed is returned by Recv after Close.
	ErrSubscriptionClosed = errors.New("subscription_closed")
	// ErrSubscriberLagged marks a LagError; match it with errors.Is.
	ErrSubscriberLagged = errors.New("subscriber_lagged")
)

// LagError reports that a slow subscriber's buffer overflowed and the
// oldest unread messages were dropped. The subscription remains usable;
// the next Recv resumes with the oldest retained message.
type LagError struct {
	Dropped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d messages dropped", e.Dropped)
}

func (e *LagError) Is(target error) bool { return target == ErrSubscriberLagged }

// Bridge is the process-wide fan-out channel for webhook messages. Publish
// never blocks regardless of subscriber count or pace; each subscriber has
// an independent FIFO buffer seeded at the moment of subscription.
//
// Construct one per process and inject it; see cmd/payway.
type Bridge struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	capacity int
	log      *zap.Logger
}

// NewBridge creates a bridge with the given per-subscriber capacity.
// A non-positive capacity falls back to DefaultCapacity.
func NewBridge(capacity int, log *zap.Logger) *Bridge {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		subs:     make(map[*Subscription]struct{}),
		capacity: capacity,
		log:      log.Named("webhook.bridge"),
	}
}

// Publish delivers msg to every current subscriber. With zero subscribers
// the message is discarded; that is not an error.
func (b *Bridge) Publish(msg Message) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	if len(subs) == 0 {
		b.log.Debug("no subscribers, dropping message", zap.String("endpoint", msg.Endpoint))
		return
	}
	for _, sub := range subs {
		sub.push(msg)
	}
}

// Subscribe attaches a new subscriber. Only messages published after this
// call are observed. Callers must Close the subscription when done.
func (b *Bridge) Subscribe() *Subscription {
	sub := &Subscription{
		bridge:   b,
		capacity: b.capacity,
		notify:   make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Subscription is an independent cursor into the broadcast stream.
type Subscription struct {
	bridge   *Bridge
	capacity int

	mu      sync.Mutex
	queue   []Message
	dropped uint64
	closed  bool
	notify  chan struct{}
}

func (s *Subscription) push(msg Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.capacity {
		// Oldest-first drop; surfaced to the subscriber on its next Recv.
		over := len(s.queue) - s.capacity + 1
		s.queue = append(s.queue[:0], s.queue[over:]...)
		s.dropped += uint64(over)
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv returns the next message in publish order. After a buffer overflow
// it returns a LagError once, then resumes delivery. It blocks until a
// message arrives, the context is done, or the subscription is closed.
func (s *Subscription) Recv(ctx context.Context) (Message, error) {
	for {
		s.mu.Lock()
		if s.dropped > 0 {
			n := s.dropped
			s.dropped = 0
			s.mu.Unlock()
			s.bridge.log.Warn("subscriber lagged", zap.Uint64("dropped", n))
			return Message{}, &LagError{Dropped: n}
		}
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		if s.closed {
			s.mu.Unlock()
			return Message{}, ErrSubscriptionClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close detaches the subscription from the bridge. Buffered messages are
// still drained by subsequent Recv calls before ErrSubscriptionClosed.
func (s *Subscription) Close() {
	s.bridge.mu.Lock()
	delete(s.bridge.subs, s)
	s.bridge.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
