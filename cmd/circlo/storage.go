package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"circlo/internal/app/middleware"
	"circlo/internal/app/policies"
	"circlo/internal/app/uow"
	domaincatalog "circlo/internal/domain/catalog"
	"circlo/internal/infra/config"
	mongodb "circlo/internal/infra/db/mongo"
	"circlo/internal/infra/db/postgres"
	infraoutbox "circlo/internal/infra/outbox"
	"circlo/internal/infra/storage/memory"
)

const webhookConsumer = "razorpay-webhook"

type itemStore interface {
	Save(ctx context.Context, item domaincatalog.Item) error
}

type storageBackend struct {
	factory     uow.UoWFactory
	items       itemStore
	idempotency middleware.IdempotencyStore
	inbox       policies.Inbox
	outbox      infraoutbox.Store
	ready       func(ctx context.Context) error
	purge       func(ctx context.Context)
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storageBackend, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return openMemory(cfg, logger), nil
	}
}

func openMemory(cfg config.Config, logger *slog.Logger) storageBackend {
	items := memory.NewItemRepository()
	box := memory.NewOutbox()
	idem := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	return storageBackend{
		factory: memory.Factory{
			Items:    items,
			Bookings: memory.NewBookingRepository(),
			Orders:   memory.NewOrderRepository(),
			Outbox:   box,
		},
		items:       items,
		idempotency: idem,
		inbox:       memory.NewInbox(),
		outbox:      box,
		purge:       purgeLoop(idem, logger),
		close:       func() {},
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (storageBackend, error) {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storageBackend{}, fmt.Errorf("mongo connect: %w", err)
	}
	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(shutdownCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		closeFn()
		return storageBackend{}, fmt.Errorf("mongo indexes: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		closeFn()
		return storageBackend{}, fmt.Errorf("mongo idempotency: %w", err)
	}
	logger.Info("mongo storage ready", "database", cfg.MongoDB)
	return storageBackend{
		factory:     mongodb.NewFactory(client.DB),
		items:       mongodb.NewItemRepository(client.DB),
		idempotency: idem,
		inbox:       mongodb.NewInboxStore(client.DB, webhookConsumer),
		outbox:      mongodb.NewOutboxStore(client.DB),
		ready:       client.Ping,
		close:       closeFn,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (storageBackend, error) {
	store, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		return storageBackend{}, err
	}
	pool := store.Pool()
	idem := postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL)
	logger.Info("postgres storage ready")
	return storageBackend{
		factory:     postgres.NewFactory(pool),
		items:       postgres.NewItemRepository(pool),
		idempotency: idem,
		inbox:       postgres.NewInboxStore(pool, webhookConsumer),
		outbox:      postgres.NewOutboxStore(pool),
		ready:       store.Ping,
		purge:       purgeLoop(idem, logger),
		close: store.Close,
	}, nil
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeLoop drops expired idempotency records once an hour. Mongo relies on
// its TTL index instead.
func purgeLoop(p purger, logger *slog.Logger) func(ctx context.Context) {
	return func(ctx context.Context) {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := p.Purge(ctx)
				if err != nil {
					logger.Warn("idempotency purge failed", "error", err)
					continue
				}
				logger.Debug("idempotency purge", "removed", n)
			}
		}
	}
}
