package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// memoryBroker is an in-process implementation of domain.Broker.
type memoryBroker struct {
	mu      sync.Mutex
	streams map[string]chan string
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{streams: make(map[string]chan string)}
}

func (b *memoryBroker) Publish(ctx context.Context, channel, payload string) error {
	b.mu.Lock()
	stream, ok := b.streams[channel]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	stream <- payload
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stream := make(chan string, 16)
	b.streams[channel] = stream
	return stream, nil
}

func (b *memoryBroker) closeChannel(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stream, ok := b.streams[channel]; ok {
		close(stream)
		delete(b.streams, channel)
	}
}

func TestListenerSequentialWithinChannel(t *testing.T) {
	broker := newMemoryBroker()
	listener := NewListener(broker, zerolog.Nop())

	var mu sync.Mutex
	var handled []string
	inFlight := 0
	done := make(chan struct{}, 3)

	listener.Bind("tasks", func(ctx context.Context, payload string) error {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			t.Error("two payloads handled concurrently on one channel")
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		handled = append(handled, payload)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	for _, payload := range []string{"a", "b", "c"} {
		if err := broker.Publish(ctx, "tasks", payload); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 3 || handled[0] != "a" || handled[1] != "b" || handled[2] != "c" {
		t.Errorf("handled = %v, want arrival order preserved", handled)
	}
}

func TestListenerContinuesAfterHandlerError(t *testing.T) {
	broker := newMemoryBroker()
	listener := NewListener(broker, zerolog.Nop())

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{}, 2)

	listener.Bind("tasks", func(ctx context.Context, payload string) error {
		mu.Lock()
		handled = append(handled, payload)
		mu.Unlock()
		done <- struct{}{}
		if payload == "bad" {
			return errors.New("handler failed")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = listener.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	_ = broker.Publish(ctx, "tasks", "bad")
	_ = broker.Publish(ctx, "tasks", "good")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("listener stopped after a handler error")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 {
		t.Errorf("handled = %v, want both payloads", handled)
	}
}

func TestListenerFatalOnLostStream(t *testing.T) {
	broker := newMemoryBroker()
	listener := NewListener(broker, zerolog.Nop())
	listener.Bind("tasks", func(ctx context.Context, payload string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- listener.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	broker.closeChannel("tasks")

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Run() returned nil for a lost subscription")
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after the stream was lost")
	}
}

func TestListenerStopsOnContextCancel(t *testing.T) {
	broker := newMemoryBroker()
	listener := NewListener(broker, zerolog.Nop())
	listener.Bind("tasks", func(ctx context.Context, payload string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- listener.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want clean shutdown", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestListenerRequiresBindings(t *testing.T) {
	listener := NewListener(newMemoryBroker(), zerolog.Nop())
	if err := listener.Run(context.Background()); err == nil {
		t.Fatal("Run() with no bindings should fail")
	}
}
