package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
	"circlo/internal/domain/pricing"
	"circlo/internal/domain/shared/money"
)

var ErrDuplicateOrder = errors.New("mongo: order already exists")

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection("payment_orders")}
}

func ensureOrderIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("payment_orders").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_ns", Value: -1}},
	})
	return err
}

func (r *OrderRepository) ByID(ctx context.Context, id domainpayment.OrderID) (*domainpayment.Order, error) {
	var doc orderDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayment.ErrOrderNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrderRepository) LatestForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainpayment.Order, error) {
	var doc orderDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "created_ns", Value: -1}})
	filter := bson.M{"booking_id": string(bookingID), "state": string(domainpayment.OrderCreated)}
	if err := r.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayment.ErrOrderNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *domainpayment.Order) error {
	if _, err := r.col.InsertOne(ctx, newOrderDocument(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return mapWriteError(err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domainpayment.Order) error {
	res, err := r.col.UpdateByID(ctx, string(o.ID), bson.M{"$set": bson.M{
		"state":      string(o.State),
		"updated_at": o.UpdatedAt.UnixMilli(),
	}})
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return domainpayment.ErrOrderNotFound
	}
	return nil
}

type orderDocument struct {
	ID        string            `bson:"_id"`
	BookingID string            `bson:"booking_id"`
	Currency  string            `bson:"currency"`
	Amount    int64             `bson:"amount"`
	Breakdown breakdownDocument `bson:"breakdown"`
	Receipt   string            `bson:"receipt"`
	Notes     map[string]string `bson:"notes,omitempty"`
	State     string            `bson:"state"`
	CreatedNs int64             `bson:"created_ns"`
	CreatedAt int64             `bson:"created_at"`
	UpdatedAt int64             `bson:"updated_at"`
}

type breakdownDocument struct {
	Units         int64  `bson:"units"`
	PriceUnit     string `bson:"price_unit"`
	UnitPrice     int64  `bson:"unit_price"`
	RentPayment   int64  `bson:"rent_payment"`
	PlatformFee   int64  `bson:"platform_fee"`
	SafetyDeposit int64  `bson:"safety_deposit"`
	Total         int64  `bson:"total"`
}

func newOrderDocument(o *domainpayment.Order) orderDocument {
	b := o.Breakdown
	return orderDocument{
		ID:        string(o.ID),
		BookingID: string(o.BookingID),
		Currency:  o.Amount.Currency,
		Amount:    o.Amount.Amount,
		Breakdown: breakdownDocument{
			Units:         b.Units,
			PriceUnit:     string(b.PriceUnit),
			UnitPrice:     b.UnitPrice.Amount,
			RentPayment:   b.RentPayment.Amount,
			PlatformFee:   b.PlatformFee.Amount,
			SafetyDeposit: b.SafetyDeposit.Amount,
			Total:         b.Total.Amount,
		},
		Receipt:   o.Receipt,
		Notes:     o.Notes,
		State:     string(o.State),
		CreatedNs: o.CreatedAt.UnixNano(),
		CreatedAt: o.CreatedAt.UnixMilli(),
		UpdatedAt: o.UpdatedAt.UnixMilli(),
	}
}

func (d orderDocument) toAggregate() *domainpayment.Order {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: d.Currency} }
	return &domainpayment.Order{
		ID:        domainpayment.OrderID(d.ID),
		BookingID: domainbooking.BookingID(d.BookingID),
		Amount:    m(d.Amount),
		Breakdown: pricing.Breakdown{
			Units:         d.Breakdown.Units,
			PriceUnit:     domaincatalog.PriceUnit(d.Breakdown.PriceUnit),
			UnitPrice:     m(d.Breakdown.UnitPrice),
			RentPayment:   m(d.Breakdown.RentPayment),
			PlatformFee:   m(d.Breakdown.PlatformFee),
			SafetyDeposit: m(d.Breakdown.SafetyDeposit),
			Total:         m(d.Breakdown.Total),
		},
		Receipt:   d.Receipt,
		Notes:     d.Notes,
		State:     domainpayment.OrderState(d.State),
		CreatedAt: time.Unix(0, d.CreatedNs).UTC(),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}
