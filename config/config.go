package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Sync     SyncConfig
	Snapshot SnapshotConfig
	Sweeper  SweeperConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// SyncConfig controls the client engine's remote synchronization.
type SyncConfig struct {
	RemoteBaseURL  string
	DebounceWindow time.Duration
	RequestTimeout time.Duration
}

// SnapshotConfig selects the local snapshot backend ("file" or "redis").
type SnapshotConfig struct {
	Backend string
	Dir     string
}

// SweeperConfig controls the server-side stale cart sweeper.
type SweeperConfig struct {
	Schedule  string
	Retention time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "cartsync"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Sync: SyncConfig{
			RemoteBaseURL:  getEnv("CART_REMOTE_BASE_URL", "http://localhost:8080"),
			DebounceWindow: parseDuration(getEnv("CART_DEBOUNCE_WINDOW", "500ms"), 500*time.Millisecond),
			RequestTimeout: parseDuration(getEnv("CART_REQUEST_TIMEOUT", "10s"), 10*time.Second),
		},
		Snapshot: SnapshotConfig{
			Backend: getEnv("SNAPSHOT_BACKEND", "file"),
			Dir:     getEnv("SNAPSHOT_DIR", ".cartsync"),
		},
		Sweeper: SweeperConfig{
			Schedule:  getEnv("SWEEPER_SCHEDULE", "0 4 * * *"),
			Retention: parseDuration(getEnv("SWEEPER_RETENTION", "720h"), 720*time.Hour),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}
