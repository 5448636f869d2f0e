/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RunMigrations              bool   `mapstructure:"RUN_MIGRATIONS"`
	MigrationsPath             string `mapstructure:"MIGRATIONS_PATH"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	TransferEventExchange      string `mapstructure:"TRANSFER_EVENT_EXCHANGE"`
	InternalAPIKey             string `mapstructure:"INTERNAL_API_KEY"`
	FeeAccountID               string `mapstructure:"FEE_ACCOUNT_ID"`
	LockTimeoutMS              int    `mapstructure:"LOCK_TIMEOUT_MS"`
	InitiateRateLimitPerMinute int    `mapstructure:"INITIATE_RATE_LIMIT_PER_MINUTE"`
	ScheduledTransferCron      string `mapstructure:"SCHEDULED_TRANSFER_CRON"`
	ScheduledTransferBatchSize int    `mapstructure:"SCHEDULED_TRANSFER_BATCH_SIZE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RUN_MIGRATIONS", false)
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("TRANSFER_EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("LOCK_TIMEOUT_MS", 5000)
	viper.SetDefault("INITIATE_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("SCHEDULED_TRANSFER_CRON", "@every 1m")
	viper.SetDefault("SCHEDULED_TRANSFER_BATCH_SIZE", 100)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("MIGRATIONS_PATH")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSFER_EVENT_EXCHANGE")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("FEE_ACCOUNT_ID")
	_ = viper.BindEnv("LOCK_TIMEOUT_MS")
	_ = viper.BindEnv("INITIATE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("SCHEDULED_TRANSFER_CRON")
	_ = viper.BindEnv("SCHEDULED_TRANSFER_BATCH_SIZE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}
	config.FeeAccountID = strings.TrimSpace(config.FeeAccountID)

	if config.LockTimeoutMS <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive lock timeout configured; using default\" lock_timeout_ms=%d", config.LockTimeoutMS)
		config.LockTimeoutMS = 5000
	}
	if config.InitiateRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative initiate rate limit configured; disabling limiter\" limit=%d", config.InitiateRateLimitPerMinute)
		config.InitiateRateLimitPerMinute = 0
	}
	if strings.TrimSpace(config.ScheduledTransferCron) == "" {
		config.ScheduledTransferCron = "@every 1m"
	}
	if config.ScheduledTransferBatchSize <= 0 {
		config.ScheduledTransferBatchSize = 100
	}

	return
}
