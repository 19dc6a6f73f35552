package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"circlo/internal/app/policies"
)

type InboxStore struct {
	pool     *pgxpool.Pool
	consumer string
}

func NewInboxStore(pool *pgxpool.Pool, consumer string) *InboxStore {
	return &InboxStore{pool: pool, consumer: consumer}
}

func (s *InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inbox WHERE event_id = $1 AND consumer = $2)`,
		eventID, s.consumer).Scan(&seen)
	return seen, err
}

func (s *InboxStore) Mark(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO inbox (event_id, consumer) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, s.consumer)
	return err
}

var _ policies.Inbox = (*InboxStore)(nil)
