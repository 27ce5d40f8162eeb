package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderDeepSeek = "deepseek"

	envPrefix = "PHARMA_"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Google     GoogleConfig     `koanf:"google"`
	Frontend   FrontendConfig   `koanf:"frontend"`
	Reminder   ReminderConfig   `koanf:"reminder"`
	Push       PushConfig       `koanf:"push"`
	Email      EmailConfig      `koanf:"email"`
	Cloudinary CloudinaryConfig `koanf:"cloudinary"`
	Assistant  AssistantConfig  `koanf:"assistant"`
	Maps       MapsConfig       `koanf:"maps"`
}

type ServerConfig struct {
	Port           string   `koanf:"port"`
	Mode           string   `koanf:"mode"` // debug, release, test
	TrustedProxies []string `koanf:"trusted_proxies"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver     string        `koanf:"driver"` // postgres or sqlite
	URL        string        `koanf:"url"`    // DSN; for sqlite a file path or file: URI
	Host       string        `koanf:"host"`
	Port       string        `koanf:"port"`
	User       string        `koanf:"user"`
	Password   string        `koanf:"password"`
	Name       string        `koanf:"name"`
	SSLMode    string        `koanf:"ssl_mode"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	LogSQL     bool          `koanf:"log_sql"`
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

type GoogleConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

type FrontendConfig struct {
	URL string `koanf:"url"`
}

type ReminderConfig struct {
	Timezone           string        `koanf:"timezone"`
	DefaultDays        int           `koanf:"default_days"`
	MaxDays            int           `koanf:"max_days"`
	GenerateWindowDays int           `koanf:"generate_window_days"` // worker top-up window
	WorkerInterval     time.Duration `koanf:"worker_interval"`
	SnoozeMinutes      int           `koanf:"snooze_minutes"`
	StaleAfter         time.Duration `koanf:"stale_after"` // doses older than this are not notified
}

type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	Subscriber      string `koanf:"subscriber"`
	TTL             int    `koanf:"ttl"`
	Icon            string `koanf:"icon"`
	Badge           string `koanf:"badge"`
}

type EmailConfig struct {
	SendGridAPIKey string `koanf:"sendgrid_api_key"`
	FromEmail      string `koanf:"from_email"`
	FromName       string `koanf:"from_name"`
}

type CloudinaryConfig struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
	Folder    string `koanf:"folder"`
}

type AssistantConfig struct {
	Provider     string  `koanf:"provider"`
	APIKey       string  `koanf:"api_key"`
	Model        string  `koanf:"model"`
	MaxTokens    int     `koanf:"max_tokens"`
	Temperature  float64 `koanf:"temperature"`
	HistoryLimit int     `koanf:"history_limit"`
	SystemPrompt string  `koanf:"system_prompt"`
}

type MapsConfig struct {
	APIKey string `koanf:"api_key"`
}

// legacyEnv maps the plain environment variables used by existing deployments
// onto config keys. They win over defaults and the config file, and lose to PHARMA_* variables.
var legacyEnv = map[string]string{
	"DATABASE_URL":                      "database.url",
	"DB_HOST":                           "database.host",
	"DB_USER":                           "database.user",
	"DB_PASSWORD":                       "database.password",
	"DB_NAME":                           "database.name",
	"DB_PORT":                           "database.port",
	"DB_SSL_MODE":                       "database.ssl_mode",
	"GIN_MODE":                          "server.mode",
	"PORT":                              "server.port",
	"JWT_SECRET":                        "auth.jwt_secret",
	"SENDGRID_API_KEY":                  "email.sendgrid_api_key",
	"SENDGRID_NOTIFICATIONS_FROM_EMAIL": "email.from_email",
	"SENDGRID_FROM_NAME":                "email.from_name",
	"CLOUDINARY_CLOUD_NAME":             "cloudinary.cloud_name",
	"CLOUDINARY_API_KEY":                "cloudinary.api_key",
	"CLOUDINARY_API_SECRET":             "cloudinary.api_secret",
	"GOOGLE_CLIENT_ID":                  "google.client_id",
	"GOOGLE_CLIENT_SECRET":              "google.client_secret",
	"GOOGLE_REDIRECT_URL":               "google.redirect_url",
	"GOOGLE_MAPS_API_KEY":               "maps.api_key",
	"DEEPSEEK_API_KEY":                  "assistant.api_key",
	"VAPID_PUBLIC_KEY":                  "push.vapid_public_key",
	"VAPID_PRIVATE_KEY":                 "push.vapid_private_key",
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	// .env is optional, existing process variables are never overwritten
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(envPrefix + "CONFIG")
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	for name, key := range legacyEnv {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			k.Set(key, value)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey turns PHARMA_DATABASE__URL into database.url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver: %s (supported: %s, %s)",
			c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set JWT_SECRET or auth.jwt_secret)")
	}

	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if c.Reminder.MaxDays < 1 || c.Reminder.MaxDays > 30 {
		return fmt.Errorf("reminder.max_days must be between 1 and 30")
	}

	if c.Reminder.DefaultDays < 1 || c.Reminder.DefaultDays > c.Reminder.MaxDays {
		return fmt.Errorf("reminder.default_days must be between 1 and %d", c.Reminder.MaxDays)
	}

	if c.Reminder.GenerateWindowDays < 1 || c.Reminder.GenerateWindowDays > c.Reminder.MaxDays {
		return fmt.Errorf("reminder.generate_window_days must be between 1 and %d", c.Reminder.MaxDays)
	}

	if c.Reminder.WorkerInterval <= 0 {
		return fmt.Errorf("reminder.worker_interval must be positive")
	}

	if _, err := time.LoadLocation(c.Reminder.Timezone); err != nil {
		return fmt.Errorf("invalid reminder.timezone %q: %w", c.Reminder.Timezone, err)
	}

	return nil
}

// Location returns the timezone reminder times are expressed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminder.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PushEnabled reports whether VAPID keys are configured.
func (c *Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}
