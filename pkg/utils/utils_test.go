package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_NAME", "marketplace")
	t.Setenv("GATEWAY_WEBHOOK_TOKEN", "cb-token")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", config.App.Port)
	assert.Equal(t, "marketplace", config.Database.Name)
	assert.Equal(t, "disable", config.Database.SSLMode)
	assert.Equal(t, "BOOKING", config.Gateway.ExternalIDPrefix)
	assert.Equal(t, "cb-token", config.Gateway.WebhookToken)
	assert.Equal(t, 15*time.Second, config.Gateway.Timeout)
	assert.Equal(t, 24*time.Hour, config.Gateway.InvoiceDuration)
	assert.Equal(t, 5, config.Gateway.BreakerMaxFailures)
	assert.Empty(t, config.Kafka.Brokers)
	assert.Equal(t, "payment_events", config.Kafka.Topic)
	assert.True(t, config.Sweeper.Enabled)
	assert.Equal(t, 30*time.Minute, config.Sweeper.StaleAfter)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("SWEEPER_ENABLED", "false")
	t.Setenv("REDIS_DEDUP_TTL", "2h")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", config.App.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, config.Gateway.Timeout)
	assert.False(t, config.Sweeper.Enabled)
	assert.Equal(t, 2*time.Hour, config.Redis.DedupTTL)
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))
	assert.Equal(t, 1, CalculateTotalPages(10, 10))
	assert.Equal(t, 2, CalculateTotalPages(11, 10))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 7, ParseInt("", 7))
	assert.Equal(t, 7, ParseInt("abc", 7))
	assert.Equal(t, 7, ParseInt("0", 7))
	assert.Equal(t, 3, ParseInt("3", 7))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "****5678", MaskSecret("12345678"))
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		Count int    `json:"count" validate:"gt=0"`
		Kind  string `json:"kind" validate:"oneof=a b"`
	}

	assert.Nil(t, ValidateStruct(payload{Email: "a@b.co", Count: 1, Kind: "a"}))

	errs := ValidateStruct(payload{Email: "nope", Kind: "c"})
	assert.Equal(t, "Invalid email format", errs["email"])
	assert.Equal(t, "Must be greater than 0", errs["count"])
	assert.Equal(t, "Must be one of: a, b", errs["kind"])
	assert.Equal(t,
		"count: Must be greater than 0; email: Invalid email format; kind: Must be one of: a, b",
		FormatValidationErrors(errs))
}
