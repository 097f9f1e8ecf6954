package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me"

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	// SQLDriver picks the database/sql driver behind postgres: "pgx" or "postgres" (lib/pq).
	SQLDriver       string        `mapstructure:"sql_driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	LogLevel        string        `mapstructure:"log_level"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PostgresDSN returns DSN if set, otherwise builds one from the parts.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultRequests int           `mapstructure:"default_requests"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	RegisterPerMin  int           `mapstructure:"register_per_minute"`
	LoginPerMin     int           `mapstructure:"login_per_minute"`
	VotePerMin      int           `mapstructure:"vote_per_minute"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings keeps the variable names the deployment already uses.
var envBindings = map[string]string{
	"server.port":                    "PORT",
	"server.mode":                    "GIN_MODE",
	"database.driver":                "DB_DRIVER",
	"database.sql_driver":            "DB_SQL_DRIVER",
	"database.dsn":                   "DATABASE_URL",
	"database.host":                  "DB_HOST",
	"database.port":                  "DB_PORT",
	"database.user":                  "DB_USER",
	"database.password":              "DB_PASSWORD",
	"database.name":                  "DB_NAME",
	"database.sslmode":               "DB_SSLMODE",
	"database.log_level":             "DB_LOG_LEVEL",
	"auth.jwt_secret":                "JWT_SECRET",
	"auth.access_ttl":                "JWT_ACCESS_TTL",
	"auth.refresh_ttl":               "JWT_REFRESH_TTL",
	"rate_limit.enabled":             "RATE_LIMIT_ENABLED",
	"cors.allow_origins":             "CORS_ALLOW_ORIGINS",
	"log.level":                      "LOG_LEVEL",
	"log.format":                     "LOG_FORMAT",
	"rate_limit.default_requests":    "RATE_LIMIT_DEFAULT_REQUESTS",
	"rate_limit.default_window":      "RATE_LIMIT_DEFAULT_WINDOW",
	"rate_limit.register_per_minute": "RATE_LIMIT_REGISTER_PER_MINUTE",
	"rate_limit.login_per_minute":    "RATE_LIMIT_LOGIN_PER_MINUTE",
	"rate_limit.vote_per_minute":     "RATE_LIMIT_VOTE_PER_MINUTE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", time.Minute)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sql_driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "stackit")
	v.SetDefault("database.password", "stackitpass")
	v.SetDefault("database.name", "stackit_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.access_ttl", time.Hour)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_requests", 100)
	v.SetDefault("rate_limit.default_window", 15*time.Minute)
	v.SetDefault("rate_limit.register_per_minute", 5)
	v.SetDefault("rate_limit.login_per_minute", 10)
	v.SetDefault("rate_limit.vote_per_minute", 30)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yaml (if present), then environment variables, on top of
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("config file not found, using environment and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Database.SQLDriver = strings.ToLower(strings.TrimSpace(c.Database.SQLDriver))
	// Env values arrive comma separated, possibly with spaces.
	origins := make([]string, 0, len(c.CORS.AllowOrigins))
	for _, entry := range c.CORS.AllowOrigins {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
	}
	c.CORS.AllowOrigins = origins
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.SQLDriver != "pgx" && c.Database.SQLDriver != "postgres" {
			return fmt.Errorf("database.sql_driver must be pgx or postgres, got %q", c.Database.SQLDriver)
		}
	case "sqlite":
		if c.Database.DSN == "" {
			c.Database.DSN = "stackit.db"
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Auth.JWTSecret == defaultJWTSecret && c.Server.Mode == "release" {
		return errors.New("auth.jwt_secret must be changed in release mode")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token lifetimes must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultRequests <= 0 || c.RateLimit.DefaultWindow <= 0) {
		return errors.New("rate_limit.default_requests and default_window must be positive")
	}
	return nil
}

// UsesDefaultSecret reports whether the JWT secret was left at its default.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == defaultJWTSecret
}
