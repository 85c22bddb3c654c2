package config

import (
	"testing"
	"time"

	"lms-module/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DBHost:              "localhost",
		DBName:              "lms",
		MpesaAPIURL:         "https://sandbox.safaricom.co.ke",
		MpesaConsumerKey:    "key",
		MpesaConsumerSecret: "secret",
		MpesaPasskey:        "passkey",
		MpesaShortcode:      "174379",
		BaseURL:             "https://lms.example.com",
		IdentitySecretKey:   "sk_test",
		HTTPTimeout:         5 * time.Second,
	}
}

func TestValidateListsEveryMissingSetting(t *testing.T) {
	cfg := validConfig()
	cfg.MpesaPasskey = ""
	cfg.BaseURL = " "

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Configuration))
	assert.Contains(t, err.Error(), "BASE_URL, MPESA_PASSKEY")
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.HTTPTimeout = 0

	assert.True(t, errors.IsKind(cfg.Validate(), errors.Configuration))
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestCallbackURL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://lms.example.com/mpesa/callback", cfg.CallbackURL())

	cfg.MpesaCallbackToken = "s3cret"
	assert.Equal(t, "https://lms.example.com/mpesa/callback?token=s3cret", cfg.CallbackURL())
}

func TestBrokers(t *testing.T) {
	cfg := &Config{KafkaBrokers: " a:9092, ,b:9092 "}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
	assert.True(t, cfg.KafkaEnabled())

	cfg.KafkaBrokers = ""
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MPESA_CONSUMER_KEY", "key")
	t.Setenv("MPESA_CONSUMER_SECRET", "secret")
	t.Setenv("MPESA_PASSKEY", "passkey")
	t.Setenv("MPESA_SHORTCODE", "174379")
	t.Setenv("BASE_URL", "https://lms.example.com/")
	t.Setenv("IDENTITY_SECRET_KEY", "sk_test")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "8080", cfg.Port)
}
