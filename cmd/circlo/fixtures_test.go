package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/infra/storage/memory"
)

func TestLoadItemFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "item-1", "owner_id": "owner-1", "unit_price": 100, "price_unit": "day"},
		{"id": "item-2", "owner_id": "owner-2", "unit_price": 5, "currency": "usd", "price_unit": "Hour"},
		{"id": "item-bad", "owner_id": "owner-3", "unit_price": 0, "price_unit": "day"},
		{"id": "item-odd", "owner_id": "owner-3", "unit_price": 10, "price_unit": "fortnight"}
	]`), 0o600))

	repo := memory.NewItemRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, loadItemFixtures(context.Background(), repo, path, "INR", logger))

	item, err := repo.ByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Equal(t, "INR", item.UnitPrice.Currency)
	require.Equal(t, domaincatalog.PriceUnitDay, item.PriceUnit)

	item, err = repo.ByID(context.Background(), "item-2")
	require.NoError(t, err)
	require.Equal(t, "USD", item.UnitPrice.Currency)
	require.Equal(t, domaincatalog.PriceUnitHour, item.PriceUnit)

	_, err = repo.ByID(context.Background(), "item-bad")
	require.ErrorIs(t, err, domaincatalog.ErrItemNotFound)
	_, err = repo.ByID(context.Background(), "item-odd")
	require.ErrorIs(t, err, domaincatalog.ErrItemNotFound)
}

func TestLoadItemFixturesMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := loadItemFixtures(context.Background(), memory.NewItemRepository(), filepath.Join(t.TempDir(), "none.json"), "INR", logger)
	require.NoError(t, err)
}

func TestLoadItemFixturesRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.Error(t, loadItemFixtures(context.Background(), memory.NewItemRepository(), path, "INR", logger))
}
