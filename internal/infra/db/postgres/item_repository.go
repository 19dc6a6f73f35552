package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/money"
)

type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) ByID(ctx context.Context, id domaincatalog.ItemID) (*domaincatalog.Item, error) {
	var (
		item     domaincatalog.Item
		itemID   string
		amount   int64
		currency string
		unit     string
	)
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, owner_id, unit_price, currency, price_unit FROM items WHERE id = $1`, string(id),
	).Scan(&itemID, &item.OwnerID, &amount, &currency, &unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domaincatalog.ErrItemNotFound
		}
		return nil, err
	}
	item.ID = domaincatalog.ItemID(itemID)
	item.UnitPrice = money.Money{Amount: amount, Currency: currency}
	item.PriceUnit = domaincatalog.PriceUnit(unit)
	return &item, nil
}

// Save upserts the catalog projection of an item.
func (r *ItemRepository) Save(ctx context.Context, item domaincatalog.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO items (id, owner_id, unit_price, currency, price_unit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    unit_price = EXCLUDED.unit_price,
		    currency = EXCLUDED.currency,
		    price_unit = EXCLUDED.price_unit`,
		string(item.ID), item.OwnerID, item.UnitPrice.Amount, item.UnitPrice.Currency, string(item.PriceUnit))
	return err
}
