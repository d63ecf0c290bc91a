package progress

import (
	"context"
	"testing"
	"time"
)

func TestHub_DeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := hub.Subscribe(ctx, "")
	one := hub.Subscribe(ctx, "run-1")
	other := hub.Subscribe(ctx, "run-2")

	hub.Emit(Event{Type: EventIteration, RunID: "run-1", Iteration: 2})

	select {
	case evt := <-all:
		if evt.RunID != "run-1" || evt.Iteration != 2 {
			t.Fatalf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber saw nothing")
	}
	select {
	case evt := <-one:
		if evt.Type != EventIteration {
			t.Fatalf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("run-1 subscriber saw nothing")
	}
	select {
	case evt := <-other:
		t.Fatalf("run-2 subscriber should see nothing, got %+v", evt)
	default:
	}
}

func TestHub_SubscriptionEndsWithContext(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	events := hub.Subscribe(ctx, "")
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed")
		}
	}
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx, "")

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Emit(Event{Type: EventIteration, RunID: "run-1", Iteration: i})
	}

	first := <-events
	if first.Iteration == 0 {
		t.Fatalf("oldest event should have been dropped, got iteration %d", first.Iteration)
	}
}

func TestEmit_UsesContextEmitter(t *testing.T) {
	hub := NewHub()
	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(subCtx, "")

	ctx := WithEmitter(context.Background(), hub)
	Emit(ctx, Event{Type: EventRunStarted, RunID: "run-1"})

	select {
	case evt := <-events:
		if evt.Type != EventRunStarted || evt.At.IsZero() {
			t.Fatalf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEmit_NoEmitterIsNoop(t *testing.T) {
	Emit(context.Background(), Event{Type: EventRunFailed})
}
