package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Session signing and api key tagging use distinct secrets on purpose.
	SessionSecret    string
	APIKeySecret     string
	SessionTTL       time.Duration
	AuthCookieSecure bool
	CookieDomain     string

	MagicLinkTTL         time.Duration
	MagicLinkTokenLength int
	MagicLinkBaseURL     string
	ConfirmURL           string
	TroubleURL           string

	OTLPEndpoint string

	// Bootstrap subjects created on startup when set.
	BootstrapAdminEmail string
	BootstrapBotEmail   string

	Email   EmailConfig
	Captcha CaptchaConfig

	RedisAddr     string
	RedisPassword string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type CaptchaConfig struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	baseURL := strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/")

	return Config{
		AppName:     getenv("APP_SERVICE", "won-service"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		SessionSecret:    strings.TrimSpace(getenv("SESSION_SECRET_KEY", "")),
		APIKeySecret:     strings.TrimSpace(getenv("API_KEY_SECRET", "")),
		SessionTTL:       getenvDuration("SESSION_TTL", 7*24*time.Hour),
		AuthCookieSecure: authCookieSecure,
		CookieDomain:     strings.TrimSpace(getenv("COOKIE_DOMAIN", "")),

		MagicLinkTTL:         getenvDuration("MAGIC_LINK_TTL", 15*time.Minute),
		MagicLinkTokenLength: getenvInt("MAGIC_LINK_TOKEN_LENGTH", 24),
		MagicLinkBaseURL:     baseURL,
		ConfirmURL:           getenv("LOGIN_CONFIRM_URL", baseURL+"/login/confirmed"),
		TroubleURL:           getenv("LOGIN_TROUBLE_URL", baseURL+"/login/trouble"),

		// Empty means no exporter; spans stay local.
		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),

		BootstrapAdminEmail: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
		BootstrapBotEmail:   strings.TrimSpace(getenv("BOOTSTRAP_BOT_EMAIL", "")),

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@worldofnuclear.com"),
		},
		Captcha: CaptchaConfig{
			Secret:    strings.TrimSpace(getenv("CAPTCHA_SECRET", "")),
			VerifyURL: getenv("CAPTCHA_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
			Timeout:   getenvDuration("CAPTCHA_TIMEOUT", 5*time.Second),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "postgres"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
	}
}

// CookieName returns the session cookie name, suffixed by environment
// outside production so deployments sharing a domain do not collide.
func (c Config) CookieName() string {
	if c.Environment == "production" {
		return "session_token"
	}
	return "session_token_" + c.Environment
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
