package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Session   SessionConfig
	Checkout  CheckoutConfig
	Notify    NotifyConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Port          string
	Env           string
	LogLevel      string
	MigrationsDir string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN builds a PostgreSQL connection URL usable by both database/sql and pgx
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is the host:port pair for the redis client
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type SessionConfig struct {
	TTL         time.Duration // zero keeps session state forever
	IdleTimeout time.Duration // unused sessions leave memory after this long
}

type CheckoutConfig struct {
	ProcessingDelay time.Duration
	StepTimeout     time.Duration
}

type NotifyConfig struct {
	URL     string // empty logs confirmations instead of sending them
	APIKey  string
	Timeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CatalogConfig struct {
	Path string // empty serves the bundled catalog
}

func Load() *Config {
	// .env.local holds developer overrides and never replaces real environment variables
	if err := godotenv.Load(".env.local"); err == nil {
		log.Printf("Loaded overrides from .env.local")
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("SESSION_TTL", "720h")
	viper.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	viper.SetDefault("CHECKOUT_PROCESSING_DELAY", "2s")
	viper.SetDefault("CHECKOUT_STEP_TIMEOUT", "10s")
	viper.SetDefault("NOTIFY_TIMEOUT", "10s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:          viper.GetString("SERVER_PORT"),
			Env:           viper.GetString("SERVER_ENV"),
			LogLevel:      viper.GetString("LOG_LEVEL"),
			MigrationsDir: viper.GetString("MIGRATIONS_DIR"),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Database:     viper.GetString("DB_DATABASE"),
			Schema:       viper.GetString("DB_SCHEMA"),
			SSLMode:      viper.GetString("DB_SSLMODE"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Session: SessionConfig{
			TTL:         viper.GetDuration("SESSION_TTL"),
			IdleTimeout: viper.GetDuration("SESSION_IDLE_TIMEOUT"),
		},
		Checkout: CheckoutConfig{
			ProcessingDelay: viper.GetDuration("CHECKOUT_PROCESSING_DELAY"),
			StepTimeout:     viper.GetDuration("CHECKOUT_STEP_TIMEOUT"),
		},
		Notify: NotifyConfig{
			URL:     viper.GetString("NOTIFY_URL"),
			APIKey:  viper.GetString("NOTIFY_API_KEY"),
			Timeout: viper.GetDuration("NOTIFY_TIMEOUT"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Catalog: CatalogConfig{
			Path: viper.GetString("CATALOG_PATH"),
		},
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("DB_USER and DB_DATABASE are required")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	return nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
