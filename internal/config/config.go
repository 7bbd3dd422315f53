package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env        string `mapstructure:"env"`
	ServerPort string `mapstructure:"port"`

	DatabaseType string `mapstructure:"db_type"`
	DatabasePath string `mapstructure:"db_path"`
	DatabaseURL  string `mapstructure:"database_url"`

	SessionDuration time.Duration `mapstructure:"session_duration"`
	SecretKey       string        `mapstructure:"secret_key"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxy bool `mapstructure:"trust_proxy"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	LoginRateLimit  int           `mapstructure:"login_rate_limit"`
	LoginRateWindow time.Duration `mapstructure:"login_rate_window"`

	// Email notifications via Amazon SES
	AWSRegion    string `mapstructure:"aws_region"`
	SESFromEmail string `mapstructure:"ses_from_email"`
	SESFromName  string `mapstructure:"ses_from_name"`
	AppBaseURL   string `mapstructure:"app_base_url"`
}

const devSecretKey = "dev-secret-key-please-change-in-production"

// keys lists every setting so viper binds it to its upper-cased env var
var keys = []string{
	"env", "port", "db_type", "db_path", "database_url",
	"session_duration", "secret_key", "access_token_ttl", "cors_origins",
	"trust_proxy", "log_level", "log_format", "login_rate_limit", "login_rate_window",
	"aws_region", "ses_from_email", "ses_from_name", "app_base_url",
}

// Load reads configuration from an optional .env file and environment
// variables, with sensible defaults
func Load() (*Config, error) {
	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Env:             v.GetString("env"),
		ServerPort:      v.GetString("port"),
		DatabaseType:    strings.ToLower(v.GetString("db_type")),
		DatabasePath:    v.GetString("db_path"),
		DatabaseURL:     readEnvOrFile(v, "database_url"),
		SessionDuration: v.GetDuration("session_duration"),
		SecretKey:       readEnvOrFile(v, "secret_key"),
		AccessTokenTTL:  v.GetDuration("access_token_ttl"),
		CORSOrigins:     splitList(v.GetString("cors_origins")),
		TrustProxy:      v.GetBool("trust_proxy"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		LoginRateLimit:  v.GetInt("login_rate_limit"),
		LoginRateWindow: v.GetDuration("login_rate_window"),
		AWSRegion:       v.GetString("aws_region"),
		SESFromEmail:    v.GetString("ses_from_email"),
		SESFromName:     v.GetString("ses_from_name"),
		AppBaseURL:      v.GetString("app_base_url"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_path", "./classroom.db")
	v.SetDefault("session_duration", 7*24*time.Hour)
	v.SetDefault("access_token_ttl", 60*time.Minute)
	v.SetDefault("cors_origins", "http://localhost:5173")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("login_rate_limit", 10)
	v.SetDefault("login_rate_window", time.Minute)
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("ses_from_name", "ClassroomHub")
	v.SetDefault("app_base_url", "http://localhost:8080")
}

func (c *Config) validate() error {
	switch c.DatabaseType {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL (or DATABASE_URL_FILE) must be set for %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if c.SecretKey == "" {
		if c.IsProduction() {
			return fmt.Errorf("SECRET_KEY (or SECRET_KEY_FILE) must be set in production")
		}
		c.SecretKey = devSecretKey
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in a production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// readEnvOrFile returns the value of key, falling back to the contents of
// the file named by KEY_FILE (docker/kubernetes secrets)
func readEnvOrFile(v *viper.Viper, key string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	path := os.Getenv(strings.ToUpper(key) + "_FILE")
	if path == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
