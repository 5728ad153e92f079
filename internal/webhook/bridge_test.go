package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func recvTimeout(t *testing.T, sub *Subscription) (Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return sub.Recv(ctx)
}

func TestPublishWithoutSubscribersIsDiscarded(t *testing.T) {
	bridge := NewBridge(10, zap.NewNop())
	bridge.Publish(Message{Endpoint: "/webhooks/stripe"})

	sub := bridge.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sub.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("late subscriber must not see earlier messages, got %v", err)
	}
}

func TestSubscriberReceivesInPublishOrder(t *testing.T) {
	bridge := NewBridge(10, zap.NewNop())
	sub := bridge.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bridge.Publish(Message{Endpoint: fmt.Sprintf("/webhooks/%d", i)})
	}
	for i := 0; i < 5; i++ {
		msg, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("recv %d: %v", i, err)
		}
		if want := fmt.Sprintf("/webhooks/%d", i); msg.Endpoint != want {
			t.Fatalf("expected %s, got %s", want, msg.Endpoint)
		}
	}
}

func TestIndependentSubscribers(t *testing.T) {
	bridge := NewBridge(10, zap.NewNop())
	a := bridge.Subscribe()
	defer a.Close()
	b := bridge.Subscribe()
	defer b.Close()

	bridge.Publish(Message{Endpoint: "/webhooks/revolut"})

	for _, sub := range []*Subscription{a, b} {
		msg, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if msg.Endpoint != "/webhooks/revolut" {
			t.Fatalf("expected delivery to every subscriber, got %s", msg.Endpoint)
		}
	}
}

func TestSlowSubscriberObservesLag(t *testing.T) {
	bridge := NewBridge(3, zap.NewNop())
	sub := bridge.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bridge.Publish(Message{Endpoint: fmt.Sprintf("/webhooks/%d", i)})
	}

	_, err := recvTimeout(t, sub)
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("expected LagError, got %v", err)
	}
	if !errors.Is(err, ErrSubscriberLagged) {
		t.Fatalf("lag error must match ErrSubscriberLagged")
	}
	if lag.Dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", lag.Dropped)
	}

	// Oldest retained message follows the lag signal.
	msg, err := recvTimeout(t, sub)
	if err != nil {
		t.Fatalf("recv after lag: %v", err)
	}
	if msg.Endpoint != "/webhooks/2" {
		t.Fatalf("expected resume at oldest retained, got %s", msg.Endpoint)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bridge := NewBridge(1, zap.NewNop())
	sub := bridge.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bridge.Publish(Message{Endpoint: "/webhooks/flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}

func TestCloseUnblocksRecv(t *testing.T) {
	bridge := NewBridge(10, zap.NewNop())
	sub := bridge.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Recv(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	sub.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSubscriptionClosed) {
			t.Fatalf("expected ErrSubscriptionClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("recv not unblocked by close")
	}
}

func TestClosedSubscriberDoesNotReceive(t *testing.T) {
	bridge := NewBridge(10, zap.NewNop())
	sub := bridge.Subscribe()
	sub.Close()

	bridge.Publish(Message{Endpoint: "/webhooks/stripe"})

	if _, err := recvTimeout(t, sub); !errors.Is(err, ErrSubscriptionClosed) {
		t.Fatalf("expected ErrSubscriptionClosed, got %v", err)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bridge := NewBridge(DefaultCapacity, zap.NewNop())
	sub := bridge.Subscribe()
	defer sub.Close()

	const n = 50
	go func() {
		for i := 0; i < n; i++ {
			bridge.Publish(Message{Endpoint: "/webhooks/bitvora", Body: []byte{byte(i)}})
		}
	}()

	seen := 0
	for seen < n {
		msg, err := recvTimeout(t, sub)
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if int(msg.Body[0]) != seen {
			t.Fatalf("out of order: expected %d, got %d", seen, msg.Body[0])
		}
		seen++
	}
}
