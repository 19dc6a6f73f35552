package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col    *mongo.Collection
	guards *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking"), guards: db.Collection("item_guards")}
}

func ensureBookingIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("agg_booking").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.start", Value: 1}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ActiveByItem(ctx context.Context, itemID domaincatalog.ItemID) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, bson.M{"item_id": string(itemID), "status": bson.M{"$in": activeStatuses()}},
		options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

// Insert bumps the item guard before counting overlaps, so two transactions
// inserting for the same item conflict on the guard and one of them aborts.
func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	_, err := r.guards.UpdateOne(ctx, bson.M{"_id": string(b.ItemID)}, bson.M{"$inc": bson.M{"seq": 1}}, options.Update().SetUpsert(true))
	if err != nil {
		return mapWriteError(err)
	}
	overlapping, err := r.col.CountDocuments(ctx, bson.M{
		"item_id":     string(b.ItemID),
		"status":      bson.M{"$in": activeStatuses()},
		"_id":         bson.M{"$ne": string(b.ID)},
		"range.start": bson.M{"$lte": b.Range.End.UnixMilli()},
		"range.end":   bson.M{"$gte": b.Range.Start.UnixMilli()},
	})
	if err != nil {
		return mapWriteError(err)
	}
	if overlapping > 0 {
		return domainbooking.ErrRangeUnavailable
	}
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentModification
		}
		return mapWriteError(err)
	}
	b.Version = 1
	return nil
}

// Update is a compare-and-swap on version.
func (r *BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentModification
	}
	b.Version = doc.Version
	return nil
}

func activeStatuses() []string {
	statuses := domainbooking.ActiveStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func mapWriteError(err error) error {
	if isWriteConflict(err) {
		return domainbooking.ErrConcurrentModification
	}
	return err
}

type bookingDocument struct {
	ID            string        `bson:"_id"`
	ItemID        string        `bson:"item_id"`
	RequesterID   string        `bson:"requester_id"`
	Range         rangeDocument `bson:"range"`
	Status        string        `bson:"status"`
	PaymentStatus string        `bson:"payment_status"`
	CreatedAt     int64         `bson:"created_at"`
	UpdatedAt     int64         `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		ItemID:        string(b.ItemID),
		RequesterID:   b.RequesterID,
		Range:         rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt.UnixMilli(),
		UpdatedAt:     b.UpdatedAt.UnixMilli(),
		Version:       b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		ItemID:        domaincatalog.ItemID(d.ItemID),
		RequesterID:   d.RequesterID,
		Range:         daterange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}
