package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
	"circlo/internal/domain/pricing"
	"circlo/internal/domain/shared/money"
)

var ErrDuplicateOrder = errors.New("postgres: order already exists")

const orderColumns = `id, booking_id, currency, amount, units, price_unit, unit_price, rent_payment,
	platform_fee, safety_deposit, receipt, COALESCE(notes, '{}'::jsonb), state, created_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) ByID(ctx context.Context, id domainpayment.OrderID) (*domainpayment.Order, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+orderColumns+` FROM payment_orders WHERE id = $1`, string(id))
	return scanOrder(row)
}

func (r *OrderRepository) LatestForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainpayment.Order, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM payment_orders
		 WHERE booking_id = $1 AND state = $2
		 ORDER BY seq DESC LIMIT 1`,
		string(bookingID), string(domainpayment.OrderCreated))
	return scanOrder(row)
}

func (r *OrderRepository) Insert(ctx context.Context, o *domainpayment.Order) error {
	b := o.Breakdown
	var notes map[string]string
	if len(o.Notes) > 0 {
		notes = o.Notes
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payment_orders (id, booking_id, currency, amount, units, price_unit, unit_price,
			rent_payment, platform_fee, safety_deposit, receipt, notes, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		string(o.ID), string(o.BookingID), o.Amount.Currency, o.Amount.Amount, b.Units, string(b.PriceUnit),
		b.UnitPrice.Amount, b.RentPayment.Amount, b.PlatformFee.Amount, b.SafetyDeposit.Amount,
		o.Receipt, notes, string(o.State), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return mapError(err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domainpayment.Order) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE payment_orders SET state = $2, updated_at = $3 WHERE id = $1`,
		string(o.ID), string(o.State), o.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domainpayment.ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*domainpayment.Order, error) {
	var (
		o                              domainpayment.Order
		id, bookingID, currency, unit  string
		state                          string
		amount, units, unitPrice, rent int64
		fee, deposit                   int64
		notes                          map[string]string
	)
	err := row.Scan(&id, &bookingID, &currency, &amount, &units, &unit, &unitPrice, &rent,
		&fee, &deposit, &o.Receipt, &notes, &state, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainpayment.ErrOrderNotFound
		}
		return nil, err
	}
	m := func(v int64) money.Money { return money.Money{Amount: v, Currency: currency} }
	o.ID = domainpayment.OrderID(id)
	o.BookingID = domainbooking.BookingID(bookingID)
	o.Amount = m(amount)
	o.Breakdown = pricing.Breakdown{
		Units:         units,
		PriceUnit:     domaincatalog.PriceUnit(unit),
		UnitPrice:     m(unitPrice),
		RentPayment:   m(rent),
		PlatformFee:   m(fee),
		SafetyDeposit: m(deposit),
		Total:         m(amount),
	}
	if len(notes) > 0 {
		o.Notes = notes
	}
	o.State = domainpayment.OrderState(state)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
