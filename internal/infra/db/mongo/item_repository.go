package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/money"
)

type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection("catalog_items")}
}

func (r *ItemRepository) ByID(ctx context.Context, id domaincatalog.ItemID) (*domaincatalog.Item, error) {
	var doc itemDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincatalog.ErrItemNotFound
		}
		return nil, err
	}
	item := doc.toItem()
	return &item, nil
}

// Save upserts the catalog projection of an item.
func (r *ItemRepository) Save(ctx context.Context, item domaincatalog.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	doc := itemDocument{
		ID:        string(item.ID),
		OwnerID:   item.OwnerID,
		UnitPrice: item.UnitPrice.Amount,
		Currency:  item.UnitPrice.Currency,
		PriceUnit: string(item.PriceUnit),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type itemDocument struct {
	ID        string `bson:"_id"`
	OwnerID   string `bson:"owner_id"`
	UnitPrice int64  `bson:"unit_price"`
	Currency  string `bson:"currency"`
	PriceUnit string `bson:"price_unit"`
}

func (d itemDocument) toItem() domaincatalog.Item {
	return domaincatalog.Item{
		ID:        domaincatalog.ItemID(d.ID),
		OwnerID:   d.OwnerID,
		UnitPrice: money.Money{Amount: d.UnitPrice, Currency: d.Currency},
		PriceUnit: domaincatalog.PriceUnit(d.PriceUnit),
	}
}
