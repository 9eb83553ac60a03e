package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Session policies for a login arriving while a refresh token is stored.
const (
	SessionPolicySingle  = "single"
	SessionPolicyReplace = "replace"
)

type Config struct {
	AppPort   string
	AppEnv    string
	ClientURL string

	// InternalServiceKey unlocks the internal rate-limit tier via X-Service-Auth.
	InternalServiceKey string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SessionPolicy    string
	CookieSecure     bool

	PaystackSecretKey   string
	PaystackBaseURL     string
	PaystackCallbackURL string
	PaystackMinAmount   decimal.Decimal
	PaystackMaxAmount   decimal.Decimal

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RabbitMQURL string
	MailQueue   string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:   getEnv("APP_PORT", "5000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:3000"),

		InternalServiceKey: os.Getenv("INTERNAL_SERVICE_KEY"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),

		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SessionPolicy:    strings.ToLower(getEnv("SESSION_POLICY", SessionPolicySingle)),

		PaystackSecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackCallbackURL: os.Getenv("PAYSTACK_CALLBACK_URL"),
		PaystackMinAmount:   getDecimal("PAYSTACK_MIN_AMOUNT", decimal.NewFromInt(100)),
		PaystackMaxAmount:   getDecimal("PAYSTACK_MAX_AMOUNT", decimal.NewFromInt(10_000_000)),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		MailQueue:   getEnv("MAIL_QUEUE", "mail.outgoing"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: os.Getenv("MAIL_FROM"),
	}
	cfg.CookieSecure = cfg.IsProduction()

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.SessionPolicy != SessionPolicySingle && cfg.SessionPolicy != SessionPolicyReplace {
		log.Printf("unknown SESSION_POLICY %q, falling back to %q", cfg.SessionPolicy, SessionPolicySingle)
		cfg.SessionPolicy = SessionPolicySingle
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %v", key, err)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Printf("invalid amount for %s: %v", key, err)
		return fallback
	}
	return d
}
