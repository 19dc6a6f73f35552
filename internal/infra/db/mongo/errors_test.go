package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
)

func TestWriteConflictMapsToConcurrentModification(t *testing.T) {
	conflict := mongo.CommandError{Code: 112, Name: "WriteConflict"}
	require.ErrorIs(t, mapWriteError(conflict), domainbooking.ErrConcurrentModification)

	labelled := mongo.CommandError{Code: 251, Labels: []string{transientTransactionLabel}}
	require.ErrorIs(t, mapWriteError(labelled), domainbooking.ErrConcurrentModification)

	other := errors.New("boom")
	require.Equal(t, other, mapWriteError(other))
	require.NoError(t, mapWriteError(nil))
}

func TestFactoryRequiresDatabase(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	require.ErrorIs(t, err, ErrUnitOfWorkNotConfigured)
}
