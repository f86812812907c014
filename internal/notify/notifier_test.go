package notify

import (
	"context"
	"io"
	"log"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSubscribeAndNotify(t *testing.T) {
	n := NewNotifier(testLogger())

	var got []string
	unsubscribe := n.Subscribe(func(resource string) {
		got = append(got, resource)
	})

	n.Notify("tiles")
	n.Notify("tiles") // redundant deliveries are allowed
	n.Notify("game_state")

	if len(got) != 3 || got[0] != "tiles" || got[1] != "tiles" || got[2] != "game_state" {
		t.Fatalf("got %v", got)
	}

	unsubscribe()
	n.Notify("tiles")
	if len(got) != 3 {
		t.Fatalf("listener still invoked after unsubscribe: %v", got)
	}

	// Double unsubscribe is harmless.
	unsubscribe()
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	n := NewNotifier(testLogger())

	counts := make([]int, 3)
	for i := range counts {
		i := i
		n.Subscribe(func(string) { counts[i]++ })
	}
	if n.SubscriberCount() != 3 {
		t.Fatalf("subscriber count = %d, want 3", n.SubscriberCount())
	}

	n.Notify("purchase_lock")
	for i, c := range counts {
		if c != 1 {
			t.Errorf("subscriber %d invoked %d times, want 1", i, c)
		}
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	n := NewNotifier(testLogger())

	n.Subscribe(func(string) { panic("boom") })
	var delivered int
	n.Subscribe(func(string) { delivered++ })

	n.Notify("tiles")
	n.Notify("tiles")

	if delivered != 2 {
		t.Fatalf("healthy listener invoked %d times, want 2", delivered)
	}
}

func TestRunPumpsFeed(t *testing.T) {
	n := NewNotifier(testLogger())

	got := make(chan string, 4)
	n.Subscribe(func(resource string) { got <- resource })

	feed := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		n.Run(ctx, feed)
		close(done)
	}()

	feed <- "tiles"
	feed <- "app_config"

	for _, want := range []string{"tiles", "app_config"} {
		select {
		case resource := <-got:
			if resource != want {
				t.Fatalf("got %q, want %q", resource, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}

	close(feed)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop when the feed closed")
	}
}
