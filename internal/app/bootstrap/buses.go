package bootstrap

import (
	"errors"
	"log/slog"
	"time"

	"circlo/internal/app/commands"
	bookingapp "circlo/internal/app/handlers/booking"
	paymentapp "circlo/internal/app/handlers/payment"
	"circlo/internal/app/middleware"
	"circlo/internal/app/outbox"
	"circlo/internal/app/policies"
	"circlo/internal/app/queries"
	"circlo/internal/app/uow"
	domainpayment "circlo/internal/domain/payment"
	domainpricing "circlo/internal/domain/pricing"
)

var ErrMissingDependency = errors.New("bootstrap: missing dependency")

// Deps is everything the command and query pipelines need. Storage and
// transport implementations are chosen by the caller.
type Deps struct {
	UoWFactory     uow.UoWFactory
	Idempotency    middleware.IdempotencyStore
	Locker         middleware.Locker
	Flusher        outbox.Flusher
	Validator      middleware.Validator
	Gateway        policies.PaymentGateway
	CheckoutSigner *domainpayment.Signer
	WebhookSigner  *domainpayment.Signer
	Calculator     domainpricing.Calculator
	Currency       string
	Metrics        policies.Metrics
	Logger         *slog.Logger
	Now            func() time.Time
	NewID          func() string
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses with the middleware
// chain, outermost first: validation, authorization, idempotency, outbox
// flush, resource lock, transaction.
func Build(d Deps) (Buses, error) {
	switch {
	case d.UoWFactory == nil:
		return Buses{}, errors.Join(ErrMissingDependency, errors.New("uow factory"))
	case d.Idempotency == nil:
		return Buses{}, errors.Join(ErrMissingDependency, errors.New("idempotency store"))
	case d.Locker == nil:
		return Buses{}, errors.Join(ErrMissingDependency, errors.New("locker"))
	case d.Flusher == nil:
		return Buses{}, errors.Join(ErrMissingDependency, errors.New("outbox flusher"))
	case d.Validator == nil:
		return Buses{}, errors.Join(ErrMissingDependency, errors.New("validator"))
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = policies.NopMetrics{}
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewRouter()
	queryBus := queries.NewRouter()
	err := errors.Join(
		commands.Register(commandBus, &bookingapp.CreateBookingHandler{
			UoWFactory: d.UoWFactory,
			Encoder:    encoder,
			Metrics:    metrics,
			Logger:     d.Logger,
			Now:        d.Now,
			NewID:      d.NewID,
		}),
		commands.Register(commandBus, &bookingapp.TransitionStatusHandler{
			UoWFactory: d.UoWFactory,
			Encoder:    encoder,
			Metrics:    metrics,
			Logger:     d.Logger,
			Now:        d.Now,
		}),
		commands.Register(commandBus, &paymentapp.CreateOrderHandler{
			UoWFactory:         d.UoWFactory,
			Gateway:            d.Gateway,
			Calculator:         d.Calculator,
			SettlementCurrency: d.Currency,
			Encoder:            encoder,
			Metrics:            metrics,
			Logger:             d.Logger,
			Now:                d.Now,
		}),
		commands.Register(commandBus, &paymentapp.VerifyPaymentHandler{
			UoWFactory: d.UoWFactory,
			Signer:     d.CheckoutSigner,
			Encoder:    encoder,
			Metrics:    metrics,
			Logger:     d.Logger,
			Now:        d.Now,
		}),
		commands.Register(commandBus, &paymentapp.WebhookHandler{
			UoWFactory: d.UoWFactory,
			Signer:     d.WebhookSigner,
			Encoder:    encoder,
			Metrics:    metrics,
			Logger:     d.Logger,
			Now:        d.Now,
		}),
		queries.Register(queryBus, &bookingapp.GetBookingHandler{UoWFactory: d.UoWFactory}),
		queries.Register(queryBus, &bookingapp.ListItemBookingsHandler{UoWFactory: d.UoWFactory}),
		queries.Register(queryBus, &paymentapp.QuoteBookingHandler{
			UoWFactory: d.UoWFactory,
			Calculator: d.Calculator,
		}),
	)
	if err != nil {
		return Buses{}, err
	}

	return Buses{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Validation(d.Validator),
			middleware.Authorization(middleware.RequirePrincipal),
			// a retry with the same idempotency key queues on the lock and then
			// replays the first result instead of running again
			middleware.ResourceLock(d.Locker, d.Logger),
			middleware.Idempotency(d.Idempotency, nil, d.Logger),
			middleware.OutboxFlush(d.Flusher, d.Logger),
			middleware.Transaction(d.UoWFactory, nil),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(d.Validator),
			middleware.QueryAuthorization(middleware.RequirePrincipal),
		),
	}, nil
}
