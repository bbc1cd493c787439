package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// Hard ceilings for token lifetimes. Configured values are clamped so a
// misconfigured environment can never issue long-lived credentials.
const (
	MaxAccessTokenLifetime  = 1 * time.Hour
	MaxRefreshTokenLifetime = 7 * 24 * time.Hour
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// IsProduction reports whether the service runs in production mode.
// Controls secure cookie flags and logger encoding.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey           string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
}

// RedisConfig holds redis configuration for the token revocation store
// and rate-limit counters. When Addr is empty the service falls back to
// an in-process store (development only).
type RedisConfig struct {
	Addr string
	DB   int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	MaxUploadSize int64
	SignedURLMin  time.Duration
	SignedURLMax  time.Duration
}

// RateLimitConfig holds thresholds for the two-window limiter applied
// to church code endpoints.
type RateLimitConfig struct {
	HourlyMax int
	DailyMax  int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Storage     StorageConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: "photoshare",
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "photoshare"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:           getEnv("JWT_SIGNING_KEY", ""),
			AccessTokenLifetime:  getEnvAsDuration("JWT_ACCESS_TOKEN_LIFETIME", 1*time.Hour),
			RefreshTokenLifetime: getEnvAsDuration("JWT_REFRESH_TOKEN_LIFETIME", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
			DB:   getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", "church-photoshare"),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			MaxUploadSize: getEnvAsInt64("STORAGE_MAX_UPLOAD_SIZE", 50*1024*1024),
			SignedURLMin:  getEnvAsDuration("STORAGE_SIGNED_URL_MIN", 5*time.Minute),
			SignedURLMax:  getEnvAsDuration("STORAGE_SIGNED_URL_MAX", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			HourlyMax: getEnvAsInt("RATE_LIMIT_HOURLY_MAX", 10),
			DailyMax:  getEnvAsInt("RATE_LIMIT_DAILY_MAX", 50),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "photoshare"),
		},
	}

	// Clamp token lifetimes to the hard ceilings
	if config.JWT.AccessTokenLifetime > MaxAccessTokenLifetime || config.JWT.AccessTokenLifetime <= 0 {
		config.JWT.AccessTokenLifetime = MaxAccessTokenLifetime
	}
	if config.JWT.RefreshTokenLifetime > MaxRefreshTokenLifetime || config.JWT.RefreshTokenLifetime <= 0 {
		config.JWT.RefreshTokenLifetime = MaxRefreshTokenLifetime
	}
	if config.Storage.SignedURLMin <= 0 || config.Storage.SignedURLMax < config.Storage.SignedURLMin {
		config.Storage.SignedURLMin = 5 * time.Minute
		config.Storage.SignedURLMax = 10 * time.Minute
	}

	return config, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("storage_bucket", c.Storage.Bucket),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as int64
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
