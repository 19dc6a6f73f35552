package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/money"
)

type itemFixture struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	UnitPrice int64  `json:"unit_price"`
	Currency  string `json:"currency"`
	PriceUnit string `json:"price_unit"`
}

func (fx itemFixture) toItem(defaultCurrency string) (domaincatalog.Item, error) {
	currency := strings.TrimSpace(fx.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	price, err := money.New(fx.UnitPrice, currency)
	if err != nil {
		return domaincatalog.Item{}, err
	}
	unit, err := domaincatalog.ParsePriceUnit(fx.PriceUnit)
	if err != nil {
		return domaincatalog.Item{}, err
	}
	item := domaincatalog.Item{
		ID:        domaincatalog.ItemID(fx.ID),
		OwnerID:   fx.OwnerID,
		UnitPrice: price,
		PriceUnit: unit,
	}
	return item, item.Validate()
}

// loadItemFixtures seeds the catalog; invalid entries are logged and skipped.
func loadItemFixtures(ctx context.Context, items itemStore, path, currency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("item fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("item fixtures file empty", "path", path)
		return nil
	}

	var fixtures []itemFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		item, err := fx.toItem(currency)
		if err != nil {
			logger.Error("fixture invalid", "item_id", fx.ID, "error", err)
			continue
		}
		if err := items.Save(ctx, item); err != nil {
			logger.Error("cannot store fixture item", "item_id", fx.ID, "error", err)
			continue
		}
		logger.Info("item fixture imported", "item_id", item.ID)
	}
	return nil
}

func defaultItemFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "items.json"),
		filepath.Join("..", "..", "data", "items.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
