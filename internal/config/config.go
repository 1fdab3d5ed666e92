package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string
	AllowedOrigin    string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
	LowStockWatch    bool
	SeedDemoData     bool
	LogLevel         string
}

func Load() Config {
	// Load .env file if it exists.
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REPORT_TTL_SECONDS", 30)
	viper.SetDefault("LOW_STOCK_WATCHLIST", true)
	viper.SetDefault("SEED_DEMO_DATA", false)
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	cfg := Config{
		Port:             viper.GetString("PORT"),
		AllowedOrigin:    viper.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:      viper.GetString("DATABASE_URL"),
		RedisAddr:        viper.GetString("REDIS_ADDR"),
		RedisPassword:    viper.GetString("REDIS_PASSWORD"),
		RedisDB:          viper.GetInt("REDIS_DB"),
		ReportTTLSeconds: viper.GetInt("REPORT_TTL_SECONDS"),
		LowStockWatch:    viper.GetBool("LOW_STOCK_WATCHLIST"),
		SeedDemoData:     viper.GetBool("SEED_DEMO_DATA"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
	}
	if cfg.ReportTTLSeconds < 1 {
		cfg.ReportTTLSeconds = 30
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
