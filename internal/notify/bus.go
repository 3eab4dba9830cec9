// Package notify implements the in-process pub/sub of spec §4.8: a single
// topic, "blockchain.event.stored", published by the Real-Time Listener
// after it stores an event, and consumed
// by the Event Processor. Delivery is best-effort: a slow or absent
// subscriber must never stall the publisher.
package notify

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"
)

// EventStored is the one notification carried on the bus.
type EventStored struct {
	ChainID uuid.UUID
	EventID uuid.UUID
}

// Bus wraps a single event.Feed. event.Feed.Send is a synchronous multicast:
// it blocks until every subscribed channel has received the value, so one
// chain's Engine falling behind on its 32-capacity channel would otherwise
// stall every Publish call, including those for other chains sharing this
// Bus. Publish avoids that by sending from its own goroutine.
type Bus struct {
	feed event.Feed
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Publish delivers ev to current subscribers without blocking the caller.
func (b *Bus) Publish(ev EventStored) {
	go b.feed.Send(ev)
}

// Subscribe registers ch to receive EventStored values until the returned
// Subscription is unsubscribed or errors out.
func (b *Bus) Subscribe(ch chan<- EventStored) event.Subscription {
	return b.feed.Subscribe(ch)
}
