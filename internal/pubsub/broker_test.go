package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/guilhermegouw/cadence/internal/events"
)

const kindTest events.Kind = "test"

func TestBrokerSubscribePublish(t *testing.T) {
	t.Run("single subscriber receives envelopes", func(t *testing.T) {
		broker := NewBroker[string]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch := broker.Subscribe(ctx)
		broker.Publish(kindTest, "hello")

		select {
		case env := <-ch:
			if env.Kind != kindTest || env.Payload != "hello" {
				t.Errorf("unexpected envelope: %+v", env)
			}
			if env.Seq != 1 {
				t.Errorf("expected seq 1, got %d", env.Seq)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("timeout waiting for envelope")
		}
	})

	t.Run("multiple subscribers receive same payload", func(t *testing.T) {
		broker := NewBroker[int]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub1 := broker.Subscribe(ctx)
		sub2 := broker.Subscribe(ctx)

		broker.Publish(kindTest, 42)

		for i, sub := range []<-chan Envelope[int]{sub1, sub2} {
			select {
			case env := <-sub:
				if env.Payload != 42 {
					t.Errorf("subscriber %d: expected 42, got %d", i, env.Payload)
				}
			case <-time.After(100 * time.Millisecond):
				t.Errorf("subscriber %d: timeout", i)
			}
		}
	})

	t.Run("cancelled context unsubscribes", func(t *testing.T) {
		broker := NewBroker[string]("test")
		defer broker.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		ch := broker.Subscribe(ctx)

		if broker.SubscriberCount() != 1 {
			t.Errorf("expected 1 subscriber, got %d", broker.SubscriberCount())
		}

		cancel()
		time.Sleep(50 * time.Millisecond)

		if broker.SubscriberCount() != 0 {
			t.Errorf("expected 0 subscribers after cancel, got %d", broker.SubscriberCount())
		}
		if _, ok := <-ch; ok {
			t.Error("expected channel to be closed")
		}
	})

	t.Run("shutdown closes all subscribers", func(t *testing.T) {
		broker := NewBroker[string]("test")

		sub1 := broker.Subscribe(context.Background())
		sub2 := broker.Subscribe(context.Background())

		broker.Shutdown()

		if _, ok := <-sub1; ok {
			t.Error("sub1 should be closed")
		}
		if _, ok := <-sub2; ok {
			t.Error("sub2 should be closed")
		}
	})

	t.Run("publish after shutdown is no-op", func(t *testing.T) {
		broker := NewBroker[string]("test")
		broker.Shutdown()

		broker.Publish(kindTest, "test")

		if broker.Metrics().PublishCount != 0 {
			t.Error("publish after shutdown should not be counted")
		}
	})

	t.Run("subscribe after shutdown returns closed channel", func(t *testing.T) {
		broker := NewBroker[string]("test")
		broker.Shutdown()

		if _, ok := <-broker.Subscribe(context.Background()); ok {
			t.Error("channel should be closed")
		}
	})
}

func TestBrokerConcurrency(t *testing.T) {
	broker := NewBroker[int]("test", WithBufferSize[int](256))
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())

	const numSubscribers = 10
	const numPublishes = 100

	var wg sync.WaitGroup
	received := make([]int, numSubscribers)

	for i := 0; i < numSubscribers; i++ {
		ch := broker.Subscribe(ctx)
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for range ch {
				received[idx]++
			}
		}(i)
	}

	var pubWg sync.WaitGroup
	for i := 0; i < numPublishes; i++ {
		pubWg.Add(1)
		go func(n int) {
			defer pubWg.Done()
			broker.Publish(kindTest, n)
		}(i)
	}
	pubWg.Wait()

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	for i, count := range received {
		if count != numPublishes {
			t.Errorf("subscriber %d received %d envelopes, want %d", i, count, numPublishes)
		}
	}
}

func TestBrokerMetrics(t *testing.T) {
	broker := NewBroker[string]("test")
	defer broker.Shutdown()

	_ = broker.Subscribe(context.Background())
	_ = broker.Subscribe(context.Background())

	broker.Publish(kindTest, "1")
	broker.Publish(kindTest, "2")

	metrics := broker.Metrics()

	if metrics.Name != "test" {
		t.Errorf("expected name 'test', got %q", metrics.Name)
	}
	if metrics.SubscriberCount != 2 || metrics.SubscriberPeak != 2 {
		t.Errorf("expected 2 subscribers (peak 2), got %d (peak %d)", metrics.SubscriberCount, metrics.SubscriberPeak)
	}
	if metrics.PublishCount != 2 {
		t.Errorf("expected 2 publishes, got %d", metrics.PublishCount)
	}
}

func TestBrokerOptions(t *testing.T) {
	t.Run("full buffer drops envelopes", func(t *testing.T) {
		broker := NewBroker[int]("test", WithBufferSize[int](2))
		defer broker.Shutdown()

		ch := broker.Subscribe(context.Background())

		broker.Publish(kindTest, 1)
		broker.Publish(kindTest, 2)
		broker.Publish(kindTest, 3)

		if broker.Metrics().DropCount != 1 {
			t.Errorf("expected 1 drop, got %d", broker.Metrics().DropCount)
		}
		if e := <-ch; e.Payload != 1 {
			t.Errorf("expected 1, got %d", e.Payload)
		}
		if e := <-ch; e.Payload != 2 {
			t.Errorf("expected 2, got %d", e.Payload)
		}
	})

	t.Run("blocking publish waits for reader", func(t *testing.T) {
		broker := NewBroker[int]("test",
			WithBufferSize[int](1),
			WithDropPolicy[int](false),
		)
		defer broker.Shutdown()

		ch := broker.Subscribe(context.Background())
		broker.Publish(kindTest, 1)

		done := make(chan bool)
		go func() {
			broker.Publish(kindTest, 2)
			done <- true
		}()

		select {
		case <-done:
			t.Error("publish should have blocked")
		case <-time.After(50 * time.Millisecond):
		}

		<-ch
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Error("publish should have completed")
		}
	})

	t.Run("shutdown releases a blocked publish", func(t *testing.T) {
		broker := NewBroker[int]("test",
			WithBufferSize[int](1),
			WithDropPolicy[int](false),
		)

		_ = broker.Subscribe(context.Background())
		broker.Publish(kindTest, 1)

		done := make(chan bool)
		go func() {
			broker.Publish(kindTest, 2)
			done <- true
		}()

		time.Sleep(20 * time.Millisecond)
		broker.Shutdown()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("publish should return after shutdown")
		}
	})
}

func TestBrokerIsShutdown(t *testing.T) {
	broker := NewBroker[string]("test")

	if broker.IsShutdown() {
		t.Error("broker should not be shut down initially")
	}

	broker.Shutdown()
	broker.Shutdown()

	if !broker.IsShutdown() {
		t.Error("broker should be shut down after Shutdown()")
	}
}
