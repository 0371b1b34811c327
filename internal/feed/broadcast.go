package feed

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("broadcaster closed")

type subscriber struct {
	ch   chan string
	done chan struct{}
	once sync.Once
}

// Broadcaster fans one blob feed out to any number of waiters.
// Every subscriber sees every blob published after it subscribed, in order.
type Broadcaster struct {
	buffer int

	pubMu  sync.Mutex
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold buffer blobs.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 0 {
		buffer = 0
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[int]*subscriber),
	}
}

// Subscribe registers a new consumer. The returned cancel func detaches it;
// the channel is closed only by Close.
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{
		ch:   make(chan string, b.buffer),
		done: make(chan struct{}),
	}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	return sub.ch, func() {
		sub.once.Do(func() { close(sub.done) })
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers blob to every current subscriber, blocking on slow ones
// until they read, detach, or ctx ends.
func (b *Broadcaster) Publish(ctx context.Context, blob string) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- blob:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close closes every subscriber channel. Waiters then see the source as closed.
func (b *Broadcaster) Close() {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Run publishes everything from in and closes the broadcaster when in closes.
func (b *Broadcaster) Run(ctx context.Context, in <-chan string) error {
	defer b.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case blob, ok := <-in:
			if !ok {
				return nil
			}
			if err := b.Publish(ctx, blob); err != nil {
				return err
			}
		}
	}
}
