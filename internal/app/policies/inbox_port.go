package policies

import "context"

// Inbox remembers gateway webhook deliveries that were fully processed so
// redeliveries can be acknowledged without work.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}
