package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Refund   RefundConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// RefundConfig carries the eligibility policy knobs. The defaults match
// the published refund policy; override only in staging experiments.
type RefundConfig struct {
	WindowDays               int
	IneligibleProgressPct    int
	FullRefundMaxProgressPct int
	FullRefundGraceDays      int
	CurrencyExponent         int
	OfferTTLHours            int
	EligibilityCacheSeconds  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "CourseFlow"),
		},
		Refund: RefundConfig{
			WindowDays:               getEnvAsInt("REFUND_WINDOW_DAYS", 30),
			IneligibleProgressPct:    getEnvAsInt("REFUND_INELIGIBLE_PROGRESS_PCT", 50),
			FullRefundMaxProgressPct: getEnvAsInt("REFUND_FULL_MAX_PROGRESS_PCT", 5),
			FullRefundGraceDays:      getEnvAsInt("REFUND_FULL_GRACE_DAYS", 7),
			CurrencyExponent:         getEnvAsInt("REFUND_CURRENCY_EXPONENT", 0),
			OfferTTLHours:            getEnvAsInt("REFUND_OFFER_TTL_HOURS", 48),
			EligibilityCacheSeconds:  getEnvAsInt("REFUND_ELIGIBILITY_CACHE_SECONDS", 60),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
