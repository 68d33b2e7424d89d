package pubsub

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// Listener receives messages published on a channel. err is non-nil when the
// broker could not deliver normally (e.g. it was closed mid-subscription).
type Listener func(ctx context.Context, message []byte, err error)

// ErrClosed is reported to listeners and publishers after Close.
var ErrClosed = xerrors.New("pubsub: broker closed")

// Broker is an in-process publish/subscribe fan-out keyed by channel name.
// Delivery is asynchronous: Publish never blocks on listeners, so it is safe
// to publish while holding locks the listeners may also take.
type Broker struct {
	mu        sync.Mutex
	listeners map[string]map[int]Listener
	nextID    int
	closed    bool
	wg        sync.WaitGroup
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		listeners: make(map[string]map[int]Listener),
	}
}

// Subscribe registers a listener on a channel and returns a cancel function.
// Cancelling is idempotent.
func (b *Broker) Subscribe(channel string, listener Listener) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	id := b.nextID
	b.nextID++

	if b.listeners[channel] == nil {
		b.listeners[channel] = make(map[int]Listener)
	}
	b.listeners[channel][id] = listener

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners[channel], id)
			if len(b.listeners[channel]) == 0 {
				delete(b.listeners, channel)
			}
		})
	}
	return cancel, nil
}

// Publish delivers message to every listener currently subscribed to the
// channel. Listeners registered after Publish returns do not receive it.
func (b *Broker) Publish(channel string, message []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	targets := make([]Listener, 0, len(b.listeners[channel]))
	for _, l := range b.listeners[channel] {
		targets = append(targets, l)
	}
	b.wg.Add(len(targets))
	b.mu.Unlock()

	for _, l := range targets {
		go func(l Listener) {
			defer b.wg.Done()
			l(context.Background(), message, nil)
		}(l)
	}
	return nil
}

// Close stops the broker, notifies listeners, and waits for in-flight
// deliveries to finish.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var all []Listener
	for _, chans := range b.listeners {
		for _, l := range chans {
			all = append(all, l)
		}
	}
	b.listeners = make(map[string]map[int]Listener)
	b.wg.Add(len(all))
	b.mu.Unlock()

	for _, l := range all {
		go func(l Listener) {
			defer b.wg.Done()
			l(context.Background(), nil, ErrClosed)
		}(l)
	}

	b.wg.Wait()
	return nil
}
