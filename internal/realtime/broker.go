// AngelaMos | 2026
// broker.go

package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broker moves encoded changes between API instances. Listen blocks until
// ctx is cancelled and calls fn for every payload, including ones this
// instance published.
type Broker interface {
	Publish(ctx context.Context, payload []byte) error
	Listen(ctx context.Context, fn func(payload []byte)) error
}

type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{client: client, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Listen(ctx context.Context, fn func(payload []byte)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close() //nolint:errcheck // best-effort close on shutdown

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(msg.Payload))
		}
	}
}

// LocalBroker loops payloads back in-process. Single-instance deployments
// and tests use it instead of Redis.
type LocalBroker struct {
	mu        sync.RWMutex
	listeners map[int]chan []byte
	next      int
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{listeners: make(map[int]chan []byte)}
}

func (b *LocalBroker) Publish(ctx context.Context, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.listeners {
		select {
		case ch <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *LocalBroker) Listen(ctx context.Context, fn func(payload []byte)) error {
	ch := make(chan []byte, 256)

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-ch:
			fn(payload)
		}
	}
}
