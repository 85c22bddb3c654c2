package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"lms-module/errors"
	"lms-module/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// M-Pesa (Daraja) push-payment gateway
	MpesaAPIURL         string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaPasskey        string
	MpesaShortcode      string
	// Shared secret carried as ?token= on the callback URL, optional
	MpesaCallbackToken string

	// Public base URL the gateway calls back on
	BaseURL string

	IdentityAPIURL    string
	IdentitySecretKey string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Kafka (comma-separated brokers)
	KafkaBrokers  string
	KafkaDLQTopic string

	HTTPTimeout time.Duration
	Port        string
	LogLevel    string
}

// Load reads .env (if present) and the process environment into a Config.
// It is called once at startup; the result is passed to every component.
func Load() (*Config, error) {
	// Try loading .env from different locations
	envLocations := []string{
		".env",              // project root
		"config/.env",       // config subdirectory
		"../config/.env",    // one level up
		"../../config/.env", // two levels up
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "lms"),

		MpesaAPIURL:         strings.TrimRight(getEnvWithDefault("MPESA_API_URL", "https://sandbox.safaricom.co.ke"), "/"),
		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaShortcode:      os.Getenv("MPESA_SHORTCODE"),
		MpesaCallbackToken:  os.Getenv("MPESA_CALLBACK_TOKEN"),

		BaseURL: strings.TrimRight(os.Getenv("BASE_URL"), "/"),

		IdentityAPIURL:    strings.TrimRight(getEnvWithDefault("IDENTITY_API_URL", "https://api.clerk.com"), "/"),
		IdentitySecretKey: os.Getenv("IDENTITY_SECRET_KEY"),

		SMTPHost:  getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getIntWithDefault("SMTP_PORT", 587),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		KafkaDLQTopic: getEnvWithDefault("KAFKA_DLQ_TOPIC", "lms.dlq"),

		HTTPTimeout: getDurationWithDefault("HTTP_TIMEOUT", 10*time.Second),
		Port:        getEnvWithDefault("PORT", "8080"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required setting in a single Configuration error.
func (c *Config) Validate() error {
	required := map[string]string{
		"DB_HOST":               c.DBHost,
		"DB_NAME":               c.DBName,
		"MPESA_API_URL":         c.MpesaAPIURL,
		"MPESA_CONSUMER_KEY":    c.MpesaConsumerKey,
		"MPESA_CONSUMER_SECRET": c.MpesaConsumerSecret,
		"MPESA_PASSKEY":         c.MpesaPasskey,
		"MPESA_SHORTCODE":       c.MpesaShortcode,
		"BASE_URL":              c.BaseURL,
		"IDENTITY_SECRET_KEY":   c.IdentitySecretKey,
	}

	var missing []string
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.NewConfigurationError("missing required settings: " + strings.Join(missing, ", "))
	}
	if c.HTTPTimeout <= 0 {
		return errors.NewConfigurationError("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// CallbackURL is the public M-Pesa callback endpoint, carrying the shared token when set.
func (c *Config) CallbackURL() string {
	u := c.BaseURL + "/mpesa/callback"
	if c.MpesaCallbackToken != "" {
		u += "?token=" + c.MpesaCallbackToken
	}
	return u
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Brokers()) > 0
}

// Brokers splits KafkaBrokers and drops blanks.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b := strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) DBConnString() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
