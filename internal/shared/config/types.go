package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// InvocationBudgetSeconds is the soft execution-time budget for a single
	// request or job. Handlers flag (never abort) when they get close.
	InvocationBudgetSeconds int `mapstructure:"invocation_budget_seconds"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

// AppStoreConfig holds credentials for the App Store Server API and JWS
// verification. IssuerID/KeyID/PrivateKey sign the ES256 bearer token used
// to call the transaction endpoints; RootCertificates holds the PEM-encoded
// Apple root CAs used to verify signed payloads (production and sandbox
// share the same roots, the environment claim is what differs).
type AppStoreConfig struct {
	IssuerID         string `mapstructure:"issuer_id"`
	SharedSecret     string `mapstructure:"shared_secret"`
	KeyID            string `mapstructure:"key_id"`
	PrivateKey       string `mapstructure:"private_key"`
	BundleID         string `mapstructure:"bundle_id"`
	RootCertificates string `mapstructure:"root_certificates"`
	APIBaseURL       string `mapstructure:"api_base_url"`
	SandboxBaseURL   string `mapstructure:"sandbox_base_url"`
	MaxRetries       int    `mapstructure:"max_retries"`
}

type StripeConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type AnalyticsConfig struct {
	AmplitudeAPIKey string `mapstructure:"amplitude_api_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type NotificationConfig struct {
	// DigestIntervalHours controls how often the expiry sweep and reminder
	// digest run. Daily by default.
	DigestIntervalHours int `mapstructure:"digest_interval_hours"`
	// InactiveAfterDays marks a user inactive for channel selection.
	InactiveAfterDays int `mapstructure:"inactive_after_days"`
	// NewUserWindowDays treats recently signed-up users as new.
	NewUserWindowDays int `mapstructure:"new_user_window_days"`
	// ExpiryReminderDays sends a reminder this many days before period end.
	ExpiryReminderDays int `mapstructure:"expiry_reminder_days"`
}
