package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию сервиса
type Config struct {
	Port           int
	MaxPrincipal   float64
	MaxRate        float64
	MaxBalanceCap  float64
	MaxTenureYears int

	PPFYearlyCap     float64
	PPFMaturityYears int
	PPFDefaultRate   float64

	NAVAPIBase      string
	NAVHistoryYears int
	NAVRatePerSec   float64
	NAVTimeout      time.Duration

	StorageMode string
	StoragePath string

	OTELEndpoint    string
	OTELServiceName string
	LogLevel        string
	LogFile         string
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvInt("PORT", 8000),
		MaxPrincipal:   getEnvFloat("MAX_PRINCIPAL", 1e9),
		MaxRate:        getEnvFloat("MAX_RATE", 100),
		MaxBalanceCap:  getEnvFloat("MAX_BALANCE_CAP", 1e12),
		MaxTenureYears: getEnvInt("MAX_TENURE_YEARS", 50),

		PPFYearlyCap:     getEnvFloat("PPF_YEARLY_CAP", 150000),
		PPFMaturityYears: getEnvInt("PPF_MATURITY_YEARS", 15),
		PPFDefaultRate:   getEnvFloat("PPF_DEFAULT_RATE", 7.1),

		NAVAPIBase:      getEnvString("NAV_API_BASE", "https://api.mfapi.in"),
		NAVHistoryYears: getEnvInt("NAV_HISTORY_YEARS", 10),
		NAVRatePerSec:   getEnvFloat("NAV_RATE_PER_SEC", 5),
		NAVTimeout:      getEnvDuration("NAV_TIMEOUT", 15*time.Second),

		StorageMode: getEnvString("STORAGE_MODE", "local"),
		StoragePath: getEnvString("STORAGE_PATH", "fintools-data.json"),

		OTELEndpoint:    getEnvString("OTEL_ENDPOINT", ""),
		OTELServiceName: getEnvString("OTEL_SERVICE_NAME", "fintools"),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		LogFile:         getEnvString("LOG_FILE", ""),
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// BalanceCap возвращает максимальный баланс для защиты от переполнения
func (c *Config) BalanceCap() float64 {
	return c.MaxBalanceCap
}
