package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "lumina/internal/shared/config"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Auth         sharedConfig.AuthConfig         `mapstructure:"auth"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Email        sharedConfig.EmailConfig        `mapstructure:"email"`
	AppStore     sharedConfig.AppStoreConfig     `mapstructure:"appstore"`
	Stripe       sharedConfig.StripeConfig       `mapstructure:"stripe"`
	LLM          sharedConfig.LLMConfig          `mapstructure:"llm"`
	Analytics    sharedConfig.AnalyticsConfig    `mapstructure:"analytics"`
	Notification sharedConfig.NotificationConfig `mapstructure:"notification"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("LUMINA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Allow env parameter to override server mode if provided
	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.invocation_budget_seconds", 60)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "lumina_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	viper.SetDefault("auth.jwt.secret", "change-me-in-production")
	viper.SetDefault("auth.jwt.access_exp_minutes", 60)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Email defaults
	viper.SetDefault("email.smtp_host", "localhost")
	viper.SetDefault("email.smtp_port", 1025)
	viper.SetDefault("email.smtp_user", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from_address", "hello@lumina.app")
	viper.SetDefault("email.from_name", "Lumina")

	// App Store defaults (credentials must be configured)
	viper.SetDefault("appstore.issuer_id", "")
	viper.SetDefault("appstore.key_id", "")
	viper.SetDefault("appstore.private_key", "")
	viper.SetDefault("appstore.bundle_id", "")
	viper.SetDefault("appstore.root_certificates", "")
	viper.SetDefault("appstore.api_base_url", "https://api.storekit.itunes.apple.com")
	viper.SetDefault("appstore.sandbox_base_url", "https://api.storekit-sandbox.itunes.apple.com")
	viper.SetDefault("appstore.max_retries", 3)

	// Stripe defaults (credentials must be configured)
	viper.SetDefault("stripe.api_key", "")
	viper.SetDefault("stripe.webhook_secret", "")

	// LLM defaults
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 1024)

	// Analytics defaults
	viper.SetDefault("analytics.amplitude_api_key", "")
	viper.SetDefault("analytics.endpoint", "https://api2.amplitude.com/2/httpapi")

	// Notification defaults
	viper.SetDefault("notification.digest_interval_hours", 24)
	viper.SetDefault("notification.inactive_after_days", 10)
	viper.SetDefault("notification.new_user_window_days", 14)
	viper.SetDefault("notification.expiry_reminder_days", 3)
}
