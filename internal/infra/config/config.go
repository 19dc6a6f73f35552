package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	GatewaySandbox  = "sandbox"
	GatewayRazorpay = "razorpay"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	StorageDriver string
	MongoURI      string
	MongoDB       string
	PostgresURL   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ItemLockTTL   time.Duration

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration

	GatewayMode          string
	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration

	SettlementCurrency     string
	PlatformFeeBasisPoints int64
	SafetyDepositMinor     int64

	JWTSecret string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	ItemsFixtures string
}

// AuditArchiveEnabled reports whether settlement events are archived to S3.
func (c Config) AuditArchiveEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// Load reads an optional .env file, then parses configuration from the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Env:                  getEnv("APP_ENV", "dev"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDB:              getEnv("MONGO_DB", "circlo"),
		PostgresURL:          os.Getenv("POSTGRES_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix:     getEnv("KAFKA_TOPIC_PREFIX", ""),
		GatewayMode:          strings.ToLower(getEnv("GATEWAY_MODE", GatewaySandbox)),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:         getEnv("GATEWAY_KEY_ID", "rzp_test_sandbox"),
		GatewayKeySecret:     getEnv("GATEWAY_KEY_SECRET", "sandbox-secret"),
		GatewayWebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", "sandbox-webhook-secret"),
		SettlementCurrency:   strings.ToUpper(getEnv("SETTLEMENT_CURRENCY", "INR")),
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret"),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3AccessKey:          getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:          getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:             getEnv("S3_BUCKET", "circlo-settlements"),
		ItemsFixtures:        getEnv("ITEMS_FIXTURES", ""),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.ItemLockTTL, err = parseDurationEnv("ITEM_LOCK_TTL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.GatewayTimeout, err = parseDurationEnv("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	fee, err := parseIntEnv("PLATFORM_FEE_BPS", 1500)
	if err != nil {
		return Config{}, err
	}
	cfg.PlatformFeeBasisPoints = int64(fee)
	deposit, err := parseIntEnv("SAFETY_DEPOSIT_MINOR", 200)
	if err != nil {
		return Config{}, err
	}
	cfg.SafetyDepositMinor = int64(deposit)
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	case DriverPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for STORAGE_DRIVER=%s", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.GatewayMode {
	case GatewaySandbox, GatewayRazorpay:
	default:
		return fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode)
	}
	if len(c.SettlementCurrency) != 3 {
		return fmt.Errorf("invalid SETTLEMENT_CURRENCY %q", c.SettlementCurrency)
	}
	if c.PlatformFeeBasisPoints < 0 || c.SafetyDepositMinor < 0 {
		return errors.New("PLATFORM_FEE_BPS and SAFETY_DEPOSIT_MINOR must not be negative")
	}
	if c.GatewayKeySecret == "" || c.GatewayWebhookSecret == "" {
		return errors.New("GATEWAY_KEY_SECRET and GATEWAY_WEBHOOK_SECRET are required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
