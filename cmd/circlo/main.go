package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"circlo/internal/app/bootstrap"
	"circlo/internal/app/middleware"
	"circlo/internal/app/policies"
	domainpayment "circlo/internal/domain/payment"
	domainpricing "circlo/internal/domain/pricing"
	s3archive "circlo/internal/infra/audit/s3"
	"circlo/internal/infra/broker/kafka"
	"circlo/internal/infra/config"
	"circlo/internal/infra/gateway/razorpay"
	"circlo/internal/infra/gateway/sandbox"
	ginserver "circlo/internal/infra/http/gin"
	lockredis "circlo/internal/infra/lock/redis"
	"circlo/internal/infra/obs"
	infraoutbox "circlo/internal/infra/outbox"
	"circlo/internal/infra/storage/memory"
	"circlo/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	fixturesPath := cfg.ItemsFixtures
	if fixturesPath == "" {
		fixturesPath = defaultItemFixturesPath()
	}
	if err := loadItemFixtures(ctx, app.items, fixturesPath, cfg.SettlementCurrency, logger); err != nil {
		logger.Warn("item fixtures load failed", "error", err, "path", fixturesPath)
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	if app.purge != nil {
		go app.purge(ctx)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, obs.HealthHandlers{
		Checks: app.checks,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "gateway", cfg.GatewayMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	metrics  *obs.Metrics
	worker   *infraoutbox.Worker
	items    itemStore
	checks   map[string]obs.CheckFunc
	purge    func(ctx context.Context)
	closers  []func()
}

func (a application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var app application
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return app, err
	}
	app.items = store.items
	app.purge = store.purge
	app.closers = append(app.closers, store.close)

	locker, lockReady, err := buildLocker(ctx, cfg)
	if err != nil {
		app.close()
		return app, err
	}

	producer, closeProducer, err := buildProducer(cfg, logger)
	if err != nil {
		app.close()
		return app, err
	}
	app.closers = append(app.closers, closeProducer)

	app.worker = infraoutbox.NewWorker(store.outbox, producer)
	app.worker.Interval = cfg.OutboxPollInterval
	app.worker.TopicPrefix = cfg.KafkaTopicPrefix
	app.worker.Backoff = cfg.RetryBackoff
	app.worker.Logger = logger

	checkoutSigner, err := domainpayment.NewSigner(cfg.GatewayKeySecret)
	if err != nil {
		app.close()
		return app, err
	}
	webhookSigner, err := domainpayment.NewSigner(cfg.GatewayWebhookSecret)
	if err != nil {
		app.close()
		return app, err
	}
	calculator, err := domainpricing.NewCalculator(domainpricing.Policy{
		PlatformFeeBasisPoints: cfg.PlatformFeeBasisPoints,
		SafetyDepositMinor:     cfg.SafetyDepositMinor,
	})
	if err != nil {
		app.close()
		return app, err
	}

	app.metrics = obs.NewMetrics()
	buses, err := bootstrap.Build(bootstrap.Deps{
		UoWFactory:     store.factory,
		Idempotency:    store.idempotency,
		Locker:         locker,
		Flusher:        app.worker,
		Validator:      validation.New(),
		Gateway:        buildGateway(cfg, checkoutSigner, logger),
		CheckoutSigner: checkoutSigner,
		WebhookSigner:  webhookSigner,
		Calculator:     *calculator,
		Currency:       cfg.SettlementCurrency,
		Metrics:        app.metrics,
		Logger:         logger,
		Now:            time.Now,
		NewID:          uuid.NewString,
	})
	if err != nil {
		app.close()
		return app, err
	}

	app.checks = map[string]obs.CheckFunc{}
	if store.ready != nil {
		app.checks["storage"] = store.ready
	}
	if lockReady != nil {
		app.checks["redis"] = lockReady
	}
	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Payment: ginserver.PaymentHandler{
			Commands: buses.Commands,
			Queries:  buses.Queries,
			Inbox:    store.inbox,
			Logger:   logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Secret: []byte(cfg.JWTSecret), Logger: logger}.Handle,
		Metrics:        app.metrics.Handler(),
	}
	return app, nil
}

func buildLocker(ctx context.Context, cfg config.Config) (middleware.Locker, func(context.Context) error, error) {
	if cfg.RedisAddr == "" {
		return memory.NewLocker(cfg.ItemLockTTL), nil, nil
	}
	client := lockredis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := lockredis.Ping(ctx, client); err != nil {
		return nil, nil, err
	}
	ready := func(ctx context.Context) error { return lockredis.Ping(ctx, client) }
	return lockredis.NewLocker(client, "circlo:lock:", cfg.ItemLockTTL, cfg.ItemLockTTL), ready, nil
}

// buildProducer fans relayed events out to Kafka and the settlement archive.
// Without either the events are only logged.
func buildProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, func(), error) {
	var producers infraoutbox.MultiProducer
	closeFn := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, "circlo", nil)
		if err != nil {
			return nil, closeFn, err
		}
		producers = append(producers, p)
		closeFn = func() {
			if err := p.Close(); err != nil {
				logger.Warn("kafka producer close failed", "error", err)
			}
		}
	}
	if cfg.AuditArchiveEnabled() {
		sink, err := s3archive.NewSink(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket,
			[]string{cfg.KafkaTopicPrefix + "payment.events.v1"}, logger)
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		producers = append(producers, sink)
	}
	if len(producers) == 0 {
		return infraoutbox.LogProducer{Logger: logger}, closeFn, nil
	}
	return producers, closeFn, nil
}

func buildGateway(cfg config.Config, signer *domainpayment.Signer, logger *slog.Logger) policies.PaymentGateway {
	if cfg.GatewayMode == config.GatewayRazorpay {
		return &razorpay.Client{
			BaseURL: cfg.GatewayBaseURL,
			Key:     cfg.GatewayKeyID,
			Secret:  cfg.GatewayKeySecret,
			Timeout: cfg.GatewayTimeout,
			Logger:  logger,
		}
	}
	logger.Warn("using sandbox payment gateway")
	return sandbox.New(cfg.GatewayKeyID, signer)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
