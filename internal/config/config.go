package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr   string
	AdminToken string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	TopTen    TopTenConfig
	Webhook   WebhookConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig

	SettingsFile string
}

// TopTenConfig carries the default credentials and client tuning for the
// remote commerce platform. Values may be overridden per call or by the
// settings file.
type TopTenConfig struct {
	Sandbox           bool
	BaseURLSandbox    string
	BaseURLProduction string
	APIKey            string
	EntityID          int64
	Retries           int
	TimeoutSeconds    int
	Debug             bool
}

// WebhookConfig controls inbound webhook verification.
type WebhookConfig struct {
	Secret           string
	ToleranceSeconds int64
}

// CheckoutConfig holds the remote platform constants used when composing
// registrations and payment sessions.
type CheckoutConfig struct {
	PaymentConceptID int64
	PaymentMethodID  int64
	BranchID         int64
	CountryID        int64
	PhonePrefix      string
	OriginLabel      string
	ReturnBaseURL    string
	CallbackURL      string
	ThankYouURL      string
	DefaultDocument  string
}

// RateLimitConfig points the public-endpoint limiter at redis. With no
// redis address the server falls back to a process-local limiter.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ReturnRate    float64
	ReturnBurst   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "topadel"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		AdminToken: strings.TrimSpace(getenv("ADMIN_TOKEN", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "topadel"),
		DBUser:            getenv("DATABASE_USER", "topadel"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		TopTen: TopTenConfig{
			Sandbox:           getenvBool("TOPTEN_SANDBOX", true),
			BaseURLSandbox:    strings.TrimRight(getenv("TOPTEN_BASE_URL_SANDBOX", ""), "/"),
			BaseURLProduction: strings.TrimRight(getenv("TOPTEN_BASE_URL_PRODUCTION", ""), "/"),
			APIKey:            strings.TrimSpace(getenv("TOPTEN_API_KEY", "")),
			EntityID:          getenvInt64("TOPTEN_ENTITY_ID", 51),
			Retries:           getenvInt("TOPTEN_RETRIES", 3),
			TimeoutSeconds:    getenvInt("TOPTEN_TIMEOUT_SECONDS", 30),
			Debug:             getenvBool("TOPTEN_DEBUG", false),
		},
		Webhook: WebhookConfig{
			Secret:           getenv("WEBHOOK_SECRET", ""),
			ToleranceSeconds: getenvInt64("WEBHOOK_TOLERANCE_SECONDS", 600),
		},
		Checkout: CheckoutConfig{
			PaymentConceptID: getenvInt64("CHECKOUT_PAYMENT_CONCEPT_ID", 27),
			PaymentMethodID:  getenvInt64("CHECKOUT_PAYMENT_METHOD_ID", 1),
			BranchID:         getenvInt64("CHECKOUT_BRANCH_ID", 78),
			CountryID:        getenvInt64("CHECKOUT_COUNTRY_ID", 186),
			PhonePrefix:      getenv("CHECKOUT_PHONE_PREFIX", "+598"),
			OriginLabel:      getenv("CHECKOUT_ORIGIN_LABEL", "Top padel"),
			ReturnBaseURL:    strings.TrimRight(getenv("CHECKOUT_RETURN_BASE_URL", ""), "/"),
			CallbackURL:      strings.TrimSpace(getenv("CHECKOUT_CALLBACK_URL", "")),
			ThankYouURL:      strings.TrimSpace(getenv("CHECKOUT_THANKYOU_URL", "")),
			DefaultDocument:  getenv("CHECKOUT_DEFAULT_DOCUMENT", ""),
		},

		RateLimit: RateLimitConfig{
			RedisAddr:     strings.TrimSpace(getenv("RATELIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATELIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATELIMIT_REDIS_DB", 0),
			ReturnRate:    getenvFloat("RATELIMIT_RETURN_RATE", 1),
			ReturnBurst:   getenvInt("RATELIMIT_RETURN_BURST", 60),
		},

		SettingsFile: getenv("SETTINGS_FILE", ""),
	}
}

// Module provides the application Config and the hot-reloadable settings holder.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSettingsHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
