package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"circlo/internal/app/queries"
)

type lookup struct{ ID string }

func (lookup) Key() string { return "test.lookup" }

func TestRouterAnswersRegisteredQuery(t *testing.T) {
	r := queries.NewRouter()
	require.NoError(t, queries.Register(r, queries.HandlerFunc[lookup, []string](func(ctx context.Context, q lookup) ([]string, error) {
		return []string{q.ID}, nil
	})))

	got, err := queries.Ask[lookup, []string](context.Background(), r, lookup{ID: "b-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"b-1"}, got)

	_, err = queries.Ask[lookup, string](context.Background(), r, lookup{})
	require.ErrorIs(t, err, queries.ErrResultType)

	require.ErrorIs(t, queries.Register(r, queries.HandlerFunc[lookup, []string](nil)), queries.ErrDuplicateHandler)
}

func TestRouterUnknownQuery(t *testing.T) {
	_, err := queries.NewRouter().Ask(context.Background(), lookup{})
	require.ErrorIs(t, err, queries.ErrHandlerNotFound)
}
