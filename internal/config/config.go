package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Auth         AuthConfig
	Questrade    QuestradeConfig
	ExchangeRate ExchangeRateConfig
	Telegram     TelegramConfig
	Camera       CameraConfig
	Schedule     ScheduleConfig
	Cache        CacheConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

// DSN returns the keyword/value connection string for the pgx driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the URL-form connection string used by the migration runner.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis specific configuration
type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
}

// KafkaConfig holds Kafka specific configuration
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

// AuthConfig holds household authentication configuration
type AuthConfig struct {
	JWTSecret     string
	PasswordHash  string
	TokenDuration time.Duration
}

// QuestradeConfig holds brokerage API configuration
type QuestradeConfig struct {
	LoginURL string
	Timeout  time.Duration
}

// ExchangeRateConfig holds exchange-rate API configuration
type ExchangeRateConfig struct {
	URL      string
	RatePath string
	Timeout  time.Duration
}

// TelegramConfig holds notification configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// CameraConfig holds camera snapshot proxy configuration
type CameraConfig struct {
	SnapshotURL string
	Timeout     time.Duration
}

// ScheduleConfig holds the refresh job window configuration
type ScheduleConfig struct {
	Interval     time.Duration
	WindowStart  string `validate:"required,hhmm"`
	WindowEnd    string `validate:"required,hhmm"`
	Timezone     string `validate:"required"`
	WeekdaysOnly bool
}

// CacheConfig holds freshness and history configuration
type CacheConfig struct {
	FreshnessWindow time.Duration
	HistoryDays     int
	DashboardTTL    time.Duration
}

// RateLimitConfig holds outbound throttle configuration
type RateLimitConfig struct {
	AccountInterval time.Duration
	MarketInterval  time.Duration
	QueueBuffer     int
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	// Optional .env for local development; missing file is fine
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the fields that cannot be defaulted into a safe value.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("hhmm", validHHMM); err != nil {
		return err
	}
	return validate.Struct(c)
}

// validHHMM accepts wall-clock times in 24h "15:04" form.
func validHHMM(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "30m")
	v.SetDefault("database.migrationsPath", "migrations")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "home-events")
	v.SetDefault("kafka.clientId", "home-api")

	// Auth defaults
	v.SetDefault("auth.tokenDuration", "24h")

	// Brokerage defaults
	v.SetDefault("questrade.loginUrl", "https://login.questrade.com")
	v.SetDefault("questrade.timeout", "30s")

	// Exchange-rate defaults
	v.SetDefault("exchangerate.url", "https://open.er-api.com/v6/latest/USD")
	v.SetDefault("exchangerate.ratePath", "$.rates.CAD")
	v.SetDefault("exchangerate.timeout", "15s")

	// Telegram defaults
	v.SetDefault("telegram.timeout", "10s")

	// Camera defaults
	v.SetDefault("camera.timeout", "15s")

	// Schedule defaults: market-hours cadence
	v.SetDefault("schedule.interval", "5m")
	v.SetDefault("schedule.windowStart", "09:30")
	v.SetDefault("schedule.windowEnd", "16:05")
	v.SetDefault("schedule.timezone", "America/Toronto")
	v.SetDefault("schedule.weekdaysOnly", true)

	// Cache defaults
	v.SetDefault("cache.freshnessWindow", "15m")
	v.SetDefault("cache.historyDays", 365)
	v.SetDefault("cache.dashboardTTL", "30s")

	// Rate limit defaults
	v.SetDefault("ratelimit.accountInterval", "120ms")
	v.SetDefault("ratelimit.marketInterval", "50ms")
	v.SetDefault("ratelimit.queueBuffer", 64)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
