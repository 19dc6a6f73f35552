package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "circlo/internal/app/outbox"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory opens a pgx transaction per unit of work.
type Factory struct {
	Pool *pgxpool.Pool

	Items    *ItemRepository
	Bookings *BookingRepository
	Orders   *OrderRepository
	Outbox   *OutboxStore
}

func NewFactory(pool *pgxpool.Pool) Factory {
	return Factory{
		Pool:     pool,
		Items:    NewItemRepository(pool),
		Bookings: NewBookingRepository(pool),
		Orders:   NewOrderRepository(pool),
		Outbox:   NewOutboxStore(pool),
	}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil || f.Items == nil || f.Bookings == nil || f.Orders == nil || f.Outbox == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{factory: f, tx: tx}, nil
}

type Unit struct {
	factory Factory
	tx      pgx.Tx
}

func (u *Unit) Items() domaincatalog.Repository {
	return u.factory.Items
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.factory.Bookings
}

func (u *Unit) Orders() domainpayment.Repository {
	return u.factory.Orders
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return u.factory.Outbox
}

func (u *Unit) Commit(ctx context.Context) error {
	return mapError(u.tx.Commit(ctx))
}

// Rollback is a no-op on a committed transaction.
func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// InjectContext makes repositories run their statements on this transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return withTx(ctx, u.tx)
}
