package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/domain/shared/daterange"
)

var ErrDuplicateBooking = errors.New("postgres: booking already exists")

const bookingColumns = `id, item_id, requester_id, start_date, end_date, status, payment_status, created_at, updated_at, version`

// BookingRepository relies on the bookings_no_overlap exclusion constraint
// for the overlap invariant; Insert surfaces its violation as
// ErrRangeUnavailable.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BookingRepository) ActiveByItem(ctx context.Context, itemID domaincatalog.ItemID) ([]*domainbooking.Booking, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE item_id = $1 AND status = ANY($2)
		 ORDER BY start_date`,
		string(itemID), activeStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)`,
		string(b.ID), string(b.ItemID), b.RequesterID, b.Range.Start, b.Range.End,
		string(b.Status), string(b.PaymentStatus), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBooking
		}
		return mapError(err)
	}
	b.Version = 1
	return nil
}

// Update is a compare-and-swap on version.
func (r *BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE bookings
		SET status = $3, payment_status = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $2`,
		string(b.ID), b.Version, string(b.Status), string(b.PaymentStatus), b.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domainbooking.ErrConcurrentModification
	}
	b.Version++
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

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		b                             domainbooking.Booking
		id, itemID, status, payStatus string
		start, end                    time.Time
	)
	if err := row.Scan(&id, &itemID, &b.RequesterID, &start, &end, &status, &payStatus, &b.CreatedAt, &b.UpdatedAt, &b.Version); err != nil {
		return nil, err
	}
	b.ID = domainbooking.BookingID(id)
	b.ItemID = domaincatalog.ItemID(itemID)
	b.Range = daterange.DateRange{Start: daterange.Day(start), End: daterange.Day(end)}
	b.Status = domainbooking.Status(status)
	b.PaymentStatus = domainbooking.PaymentStatus(payStatus)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}
