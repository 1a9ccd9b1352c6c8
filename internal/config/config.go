package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Logger    Logger    `mapstructure:"logger"`
	Simulator Simulator `mapstructure:"simulator"`
	Trading   Trading   `mapstructure:"trading"`
	Gateway   Gateway   `mapstructure:"gateway"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port           int     `mapstructure:"port"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputFile string `mapstructure:"output_file"`
}

// Simulator holds the configuration for the price simulator.
type Simulator struct {
	TickIntervalMs int     `mapstructure:"tick_interval_ms"`
	PriceFloor     float64 `mapstructure:"price_floor"`
}

// Trading holds the configuration for the paper-trading ledger.
type Trading struct {
	StartingBalance  float64 `mapstructure:"starting_balance"`
	HistoryCap       int     `mapstructure:"history_cap"`
	BuyCostPerLot    float64 `mapstructure:"buy_cost_per_lot"`
	SellCreditPerLot float64 `mapstructure:"sell_credit_per_lot"`
}

// Gateway holds the configuration for the external execution service client.
type Gateway struct {
	BaseURL        string  `mapstructure:"base_url"`
	DryRun         bool    `mapstructure:"dry_run"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.rate_limit", 50) // requests per second
	viper.SetDefault("server.rate_limit_burst", 20)
	viper.SetDefault("simulator.tick_interval_ms", 1300)
	viper.SetDefault("simulator.price_floor", 0.0001)
	viper.SetDefault("trading.starting_balance", 15000)
	viper.SetDefault("trading.history_cap", 50)
	viper.SetDefault("trading.buy_cost_per_lot", 11.4)
	viper.SetDefault("trading.sell_credit_per_lot", 9.2)
	viper.SetDefault("gateway.dry_run", true)
	viper.SetDefault("gateway.rate_limit", 20)
	viper.SetDefault("gateway.rate_limit_burst", 5)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
