// Package inproc is an in-process ports.Broker, used by the local
// worker and by tests, generalizing the register/unregister/broadcast
// hub pattern to the Discovery Loop / Work Dispatcher's three message
// classes: a priority-ordered profile fanout, a datasets topic with
// subscriber channels, and a failed_profile queue.
package inproc

import (
	"context"
	"sync"

	"datamart/ports"
)

const queueCapacity = 1024

// Broker is a single-process Broker: four priority-ordered profile
// queues consumed highest-priority-first, a subscriber registry for
// dataset events, and a failed-message queue.
type Broker struct {
	queues [4]chan ports.ProfileMessage
	failed chan ports.ProfileMessage

	subsMu sync.Mutex
	subs   map[chan ports.DatasetEvent]struct{}
}

func New() *Broker {
	b := &Broker{
		failed: make(chan ports.ProfileMessage, queueCapacity),
		subs:   make(map[chan ports.DatasetEvent]struct{}),
	}
	for i := range b.queues {
		b.queues[i] = make(chan ports.ProfileMessage, queueCapacity)
	}
	return b
}

// PublishProfile enqueues msg on the queue for its priority level.
func (b *Broker) PublishProfile(ctx context.Context, msg ports.ProfileMessage) error {
	select {
	case b.queues[msg.Priority] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeProfile returns the highest-priority message available,
// blocking until one exists or ctx is canceled. Urgent messages are
// always drained before Normal or Low ones.
func (b *Broker) ConsumeProfile(ctx context.Context) (ports.ProfileMessage, error) {
	for p := len(b.queues) - 1; p >= 0; p-- {
		select {
		case msg := <-b.queues[p]:
			return msg, nil
		default:
		}
	}
	select {
	case msg := <-b.queues[ports.PriorityUrgent]:
		return msg, nil
	case msg := <-b.queues[ports.PriorityHigh]:
		return msg, nil
	case msg := <-b.queues[ports.PriorityNormal]:
		return msg, nil
	case msg := <-b.queues[ports.PriorityLow]:
		return msg, nil
	case <-ctx.Done():
		return ports.ProfileMessage{}, ctx.Err()
	}
}

// PublishDatasetEvent fans event out to every subscriber, dropping it
// for any subscriber whose channel is currently full rather than
// blocking the publisher.
func (b *Broker) PublishDatasetEvent(_ context.Context, event ports.DatasetEvent) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscribeDatasetEvents registers a new subscriber channel, returning
// it along with an unsubscribe func that closes it.
func (b *Broker) SubscribeDatasetEvents(ctx context.Context) (<-chan ports.DatasetEvent, func()) {
	ch := make(chan ports.DatasetEvent, 16)

	b.subsMu.Lock()
	b.subs[ch] = struct{}{}
	b.subsMu.Unlock()

	unsubscribe := func() {
		b.subsMu.Lock()
		defer b.subsMu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe
}

// PublishFailed moves msg to the failed_profile queue verbatim.
func (b *Broker) PublishFailed(_ context.Context, msg ports.ProfileMessage) {
	select {
	case b.failed <- msg:
	default:
	}
}

// Failed exposes the failed_profile queue for inspection, e.g. by
// operational tooling or tests; it is not part of ports.Broker.
func (b *Broker) Failed() <-chan ports.ProfileMessage {
	return b.failed
}
