package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "circlo/internal/app/outbox"
	infraoutbox "circlo/internal/infra/outbox"
)

// OutboxStore writes records inside the caller's transaction and serves
// them to the relay with SKIP LOCKED claims.
type OutboxStore struct {
	pool *pgxpool.Pool
	// ClaimTimeout releases records claimed by a worker that died.
	ClaimTimeout time.Duration
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, ClaimTimeout: 5 * time.Minute}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, record.Headers)
	return mapError(err)
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		UPDATE outbox
		SET state = 'CLAIMED', claimed_by = $1, claimed_at = $2
		WHERE id = (
			SELECT id FROM outbox
			WHERE (state IN ('NEW', 'FAILED') AND next_attempt_at <= $2)
			   OR (state = 'CLAIMED' AND claimed_at <= $3)
			ORDER BY seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, COALESCE(headers, '{}'::jsonb), attempts`,
		workerID, now, now.Add(-s.ClaimTimeout))
	var msg infraoutbox.Message
	err := row.Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &msg.Headers, &msg.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msg.OccurredAt = msg.OccurredAt.UTC()
	return &msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = 'SENT', sent_at = NOW() WHERE id = $1`, id)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET state = 'FAILED', attempts = attempts + 1, next_attempt_at = $2, last_error = $3
		WHERE id = $1`, id, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
