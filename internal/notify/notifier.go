// Package notify fans catalog-change notifications out to interested
// observers. Delivery is at-least-once and carries only the changed
// resource name; listeners must re-fetch full state rather than apply
// the notification as a delta.
package notify

import (
	"context"
	"log"
	"sync"
)

// Listener receives the name of a changed resource.
type Listener func(resource string)

// Notifier is an observer registry over a single underlying change
// feed connection. Multiple subscribers share one feed.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[int]Listener
	nextID      int
	logger      *log.Logger
}

func NewNotifier(logger *log.Logger) *Notifier {
	return &Notifier{
		subscribers: make(map[int]Listener),
		logger:      logger,
	}
}

// Subscribe registers a listener and returns its unsubscribe func.
// Unsubscribing twice is harmless.
func (n *Notifier) Subscribe(listener Listener) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subscribers[id] = listener
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subscribers, id)
		n.mu.Unlock()
	}
}

// Notify invokes every current subscriber. A panicking listener is
// isolated so it cannot take the fan-out down with it.
func (n *Notifier) Notify(resource string) {
	n.mu.Lock()
	listeners := make([]Listener, 0, len(n.subscribers))
	for _, l := range n.subscribers {
		listeners = append(listeners, l)
	}
	n.mu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.logger.Printf("Change listener panicked: %v", r)
				}
			}()
			listener(resource)
		}()
	}
}

// Run pumps the change feed into the registry until ctx is cancelled
// or the feed closes.
func (n *Notifier) Run(ctx context.Context, feed <-chan string) {
	for {
		select {
		case resource, ok := <-feed:
			if !ok {
				n.logger.Println("Change feed closed, notifier stopping")
				return
			}
			n.Notify(resource)
		case <-ctx.Done():
			return
		}
	}
}

// SubscriberCount reports the number of registered listeners.
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}
