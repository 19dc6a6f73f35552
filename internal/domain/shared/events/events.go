// Package events holds the domain event contract shared by aggregates.
package events

import "time"

// DomainEvent is something an aggregate did. Names are dotted, aggregate
// first ("booking.requested"), and pick the outbox topic.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Buffer collects events raised by an aggregate until the application layer
// pulls them into the outbox. Embed it by value.
type Buffer struct {
	raised []DomainEvent
}

func (b *Buffer) Record(ev DomainEvent) {
	if ev != nil {
		b.raised = append(b.raised, ev)
	}
}

// PullEvents hands over the buffered events and empties the buffer.
func (b *Buffer) PullEvents() []DomainEvent {
	out := b.raised
	b.raised = nil
	if out == nil {
		return []DomainEvent{}
	}
	return out
}
