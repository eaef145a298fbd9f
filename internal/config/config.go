// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env  string `mapstructure:"APP_ENV" yaml:"app_env"`
	Port string `mapstructure:"PORT" yaml:"port"`

	DBDriver                 string `mapstructure:"DB_DRIVER" yaml:"db_driver"`
	DBHost                   string `mapstructure:"DB_HOST" yaml:"db_host"`
	DBPort                   string `mapstructure:"DB_PORT" yaml:"db_port"`
	DBUser                   string `mapstructure:"DB_USER" yaml:"db_user"`
	DBPassword               string `mapstructure:"DB_PASSWORD" yaml:"db_password"`
	DBName                   string `mapstructure:"DB_NAME" yaml:"db_name"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE" yaml:"db_sslmode"`
	DBPath                   string `mapstructure:"DB_PATH" yaml:"db_path"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS" yaml:"db_max_open_conns"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS" yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES" yaml:"db_conn_max_lifetime_minutes"`

	RedisURL string `mapstructure:"REDIS_URL" yaml:"redis_url"`

	JWTSecret    string `mapstructure:"JWT_SECRET" yaml:"jwt_secret"`
	JWTExpiresIn string `mapstructure:"JWT_EXPIRES_IN" yaml:"jwt_expires_in"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER" yaml:"jwt_issuer"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE" yaml:"jwt_audience"`
	BcryptCost   int    `mapstructure:"BCRYPT_COST" yaml:"bcrypt_cost"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`

	UploadDir             string `mapstructure:"UPLOAD_DIR" yaml:"upload_dir"`
	UploadMaxSizeMB       int    `mapstructure:"UPLOAD_MAX_SIZE_MB" yaml:"upload_max_size_mb"`
	ThumbnailMaxDimension int    `mapstructure:"THUMBNAIL_MAX_DIMENSION" yaml:"thumbnail_max_dimension"`
	PublicBaseURL         string `mapstructure:"PUBLIC_BASE_URL" yaml:"public_base_url"`

	LogLevel            string `mapstructure:"LOG_LEVEL" yaml:"log_level"`
	LogFormat           string `mapstructure:"LOG_FORMAT" yaml:"log_format"`
	LogFile             string `mapstructure:"LOG_FILE" yaml:"log_file"`
	LogMaxSizeMB        int    `mapstructure:"LOG_MAX_SIZE_MB" yaml:"log_max_size_mb"`
	LogMaxBackups       int    `mapstructure:"LOG_MAX_BACKUPS" yaml:"log_max_backups"`
	LogMaxAgeDays       int    `mapstructure:"LOG_MAX_AGE_DAYS" yaml:"log_max_age_days"`
	RequestLogBodyLimit int    `mapstructure:"REQUEST_LOG_BODY_LIMIT" yaml:"request_log_body_limit"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED" yaml:"tracing_enabled"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER" yaml:"tracing_exporter"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO" yaml:"tracing_sample_ratio"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "quill")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "quill.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_EXPIRES_IN", "7d")
	viper.SetDefault("JWT_ISSUER", "quill-api")
	viper.SetDefault("JWT_AUDIENCE", "quill-client")
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("UPLOAD_MAX_SIZE_MB", 5)
	viper.SetDefault("THUMBNAIL_MAX_DIMENSION", 1280)
	viper.SetDefault("PUBLIC_BASE_URL", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("LOG_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 5)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 28)
	viper.SetDefault("REQUEST_LOG_BODY_LIMIT", 1024)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// TokenTTL parses JWT_EXPIRES_IN. Besides Go durations it accepts whole
// days written as "7d".
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseTTL(c.JWTExpiresIn)
}

// ParseTTL parses a Go duration or an "<n>d" day count.
func ParseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", raw)
	}
	return d, nil
}

// UploadMaxBytes returns the thumbnail size cap in bytes.
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return fmt.Errorf("JWT_EXPIRES_IN is invalid: %w", err)
	}
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mysql, sqlite (got %q)", c.DBDriver)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if c.UploadMaxSizeMB <= 0 {
		return errors.New("UPLOAD_MAX_SIZE_MB must be positive")
	}
	if c.ThumbnailMaxDimension <= 0 {
		return errors.New("THUMBNAIL_MAX_DIMENSION must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver != "sqlite" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
				return errors.New("DB_SSLMODE must enable TLS in production")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// Redacted returns a copy with secrets masked, for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.JWTSecret = mask(c.JWTSecret)
	c.DBPassword = mask(c.DBPassword)
	return c
}
