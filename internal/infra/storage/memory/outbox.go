package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "circlo/internal/app/outbox"
	infraoutbox "circlo/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// Outbox is the committed-record queue of memory mode. It serves the relay
// worker the same way the database stores do.
type Outbox struct {
	mu      sync.Mutex
	records []*outboxEntry
	// Retain keeps sent records, for inspection in tests.
	Retain bool
}

type outboxEntry struct {
	msg       infraoutbox.Message
	state     string
	nextRetry time.Time
	lastError string
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Add stores a record outside any unit of work.
func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.append(record)
	return nil
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range records {
		o.records = append(o.records, &outboxEntry{
			msg: infraoutbox.Message{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    rec.Payload,
				OccurredAt: rec.OccurredAt,
				Aggregate:  rec.Aggregate,
				Headers:    rec.Headers,
			},
			state:     stateNew,
			nextRetry: now,
		})
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, entry := range o.records {
		if (entry.state == stateNew || entry.state == stateFailed) && !entry.nextRetry.After(now) {
			entry.state = stateClaimed
			msg := entry.msg
			return &msg, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, entry := range o.records {
		if entry.msg.ID != id {
			continue
		}
		if o.Retain {
			entry.state = stateSent
			return nil
		}
		o.records = append(o.records[:i], o.records[i+1:]...)
		return nil
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, entry := range o.records {
		if entry.msg.ID == id {
			entry.state = stateFailed
			entry.nextRetry = next
			entry.lastError = errMsg
			entry.msg.Attempts++
			return nil
		}
	}
	return nil
}

// Records lists stored messages in insertion order.
func (o *Outbox) Records() []infraoutbox.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.Message, 0, len(o.records))
	for _, entry := range o.records {
		out = append(out, entry.msg)
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
