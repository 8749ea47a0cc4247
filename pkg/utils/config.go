package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Sweeper  SweeperConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

// GatewayConfig holds the invoice gateway credentials and webhook settings.
type GatewayConfig struct {
	BaseURL            string
	SecretKey          string
	WebhookToken       string
	ExternalIDPrefix   string
	Currency           string
	Timeout            time.Duration
	InvoiceDuration    time.Duration
	SuccessRedirectURL string
	FailureRedirectURL string
	BreakerMaxFailures int
	BreakerReset       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

type SweeperConfig struct {
	Enabled    bool
	Interval   time.Duration
	StaleAfter time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "service-marketplace")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("GATEWAY_BASE_URL", "https://api.xendit.co")
	viper.SetDefault("GATEWAY_EXTERNAL_ID_PREFIX", "BOOKING")
	viper.SetDefault("GATEWAY_CURRENCY", "IDR")
	viper.SetDefault("GATEWAY_TIMEOUT", "15s")
	viper.SetDefault("GATEWAY_INVOICE_DURATION", "24h")
	viper.SetDefault("GATEWAY_BREAKER_MAX_FAILURES", 5)
	viper.SetDefault("GATEWAY_BREAKER_RESET", "30s")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DEDUP_TTL", "24h")
	viper.SetDefault("KAFKA_TOPIC", "payment_events")
	viper.SetDefault("TRACING_SERVICE_NAME", "service-marketplace")
	viper.SetDefault("SWEEPER_ENABLED", true)
	viper.SetDefault("SWEEPER_INTERVAL", "5m")
	viper.SetDefault("SWEEPER_STALE_AFTER", "30m")

	// .env is optional, environment variables still apply
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Gateway: GatewayConfig{
			BaseURL:            viper.GetString("GATEWAY_BASE_URL"),
			SecretKey:          viper.GetString("GATEWAY_SECRET_KEY"),
			WebhookToken:       viper.GetString("GATEWAY_WEBHOOK_TOKEN"),
			ExternalIDPrefix:   viper.GetString("GATEWAY_EXTERNAL_ID_PREFIX"),
			Currency:           viper.GetString("GATEWAY_CURRENCY"),
			Timeout:            viper.GetDuration("GATEWAY_TIMEOUT"),
			InvoiceDuration:    viper.GetDuration("GATEWAY_INVOICE_DURATION"),
			SuccessRedirectURL: viper.GetString("GATEWAY_SUCCESS_REDIRECT_URL"),
			FailureRedirectURL: viper.GetString("GATEWAY_FAILURE_REDIRECT_URL"),
			BreakerMaxFailures: viper.GetInt("GATEWAY_BREAKER_MAX_FAILURES"),
			BreakerReset:       viper.GetDuration("GATEWAY_BREAKER_RESET"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			DedupTTL: viper.GetDuration("REDIS_DEDUP_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Tracing: TracingConfig{
			Endpoint:    viper.GetString("TRACING_ENDPOINT"),
			ServiceName: viper.GetString("TRACING_SERVICE_NAME"),
		},
		Sweeper: SweeperConfig{
			Enabled:    viper.GetBool("SWEEPER_ENABLED"),
			Interval:   viper.GetDuration("SWEEPER_INTERVAL"),
			StaleAfter: viper.GetDuration("SWEEPER_STALE_AFTER"),
		},
	}

	return config, nil
}

// splitList parses a comma separated env value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
