package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
)

func TestMapErrorTranslatesConstraintFailures(t *testing.T) {
	exclusion := &pgconn.PgError{Code: pgerrcode.ExclusionViolation, ConstraintName: "bookings_no_overlap"}
	require.ErrorIs(t, mapError(exclusion), domainbooking.ErrRangeUnavailable)
	require.ErrorIs(t, mapError(fmt.Errorf("exec: %w", exclusion)), domainbooking.ErrRangeUnavailable)

	serialization := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	require.ErrorIs(t, mapError(serialization), domainbooking.ErrConcurrentModification)

	other := &pgconn.PgError{Code: pgerrcode.NotNullViolation}
	require.Same(t, other, mapError(other))

	plain := errors.New("boom")
	require.Equal(t, plain, mapError(plain))
	require.NoError(t, mapError(nil))
}

func TestUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ExclusionViolation}))
	require.False(t, isUniqueViolation(pgx.ErrNoRows))
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "bookings_no_overlap")
	require.Contains(t, string(body), "btree_gist")
}

func TestFactoryRequiresPool(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	require.ErrorIs(t, err, ErrUnitOfWorkNotConfigured)
}
