package config

import (
	"os"
	"strconv"
)

// Config carries the process-level settings of a backtest run. Values come
// from the environment (optionally loaded from a .env file by the caller)
// and are overridden by command-line flags in cmd.
type Config struct {
	LogLevel string

	Account struct {
		InitialCash    float64
		CommissionRate float64
		MinCommission  float64
		TaxRate        float64
	}

	Strategy struct {
		OrderCash   float64
		DailyWindow int
		MinPrice    float64
		MaxPrice    float64
	}

	Data struct {
		Root string
	}

	Monitoring struct {
		Enabled        bool
		PrometheusPort int
	}
}

// Load reads the configuration from the environment with sensible
// defaults for a CN A-share cash account.
func Load() *Config {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	cfg.Account.InitialCash = getEnvFloat("INITIAL_CASH", 1000000)
	cfg.Account.CommissionRate = getEnvFloat("COMMISSION_RATE", 0.0003)
	cfg.Account.MinCommission = getEnvFloat("MIN_COMMISSION", 5.0)
	cfg.Account.TaxRate = getEnvFloat("TAX_RATE", 0.001)

	cfg.Strategy.OrderCash = getEnvFloat("ORDER_CASH", 50000)
	cfg.Strategy.DailyWindow = getEnvInt("DAILY_WINDOW", 60)
	cfg.Strategy.MinPrice = getEnvFloat("MIN_PRICE", 0)
	cfg.Strategy.MaxPrice = getEnvFloat("MAX_PRICE", 0)

	cfg.Data.Root = getEnv("DATA_ROOT", "data")

	cfg.Monitoring.Enabled = getEnvBool("METRICS_ENABLED", false)
	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
