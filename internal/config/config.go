package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Game      GameConfig
	Bots      BotConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Host string
	Env  string // "development" or "production"
}

// GameConfig holds room lifecycle configuration
type GameConfig struct {
	HostGracePeriod  time.Duration
	StaleRoomTimeout time.Duration
}

// BotConfig holds simulated player delays
type BotConfig struct {
	AnswerDelayMin time.Duration
	AnswerDelayMax time.Duration
	PickDelayMin   time.Duration
	PickDelayMax   time.Duration
}

// DatabaseConfig holds persistence configuration. An empty URL disables the database.
type DatabaseConfig struct {
	URL     string
	Migrate bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// RateLimitConfig bounds inbound websocket messages per connection
type RateLimitConfig struct {
	MessagesPerSecond float64
	Burst             int
}

// Load reads an optional .env file, then loads configuration from environment
// variables with defaults. Variables already set in the environment win over .env.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Game: GameConfig{
			HostGracePeriod:  time.Duration(getEnvInt("HOST_GRACE_PERIOD_MS", 5000)) * time.Millisecond,
			StaleRoomTimeout: time.Duration(getEnvInt("STALE_ROOM_TIMEOUT_MINUTES", 120)) * time.Minute,
		},
		Bots: BotConfig{
			AnswerDelayMin: time.Duration(getEnvInt("BOT_ANSWER_DELAY_MIN_MS", 2000)) * time.Millisecond,
			AnswerDelayMax: time.Duration(getEnvInt("BOT_ANSWER_DELAY_MAX_MS", 8000)) * time.Millisecond,
			PickDelayMin:   time.Duration(getEnvInt("BOT_PICK_DELAY_MIN_MS", 1500)) * time.Millisecond,
			PickDelayMax:   time.Duration(getEnvInt("BOT_PICK_DELAY_MAX_MS", 5000)) * time.Millisecond,
		},
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", ""),
			Migrate: getEnvBool("DATABASE_MIGRATE", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: getEnvFloat("WS_MESSAGES_PER_SECOND", 10),
			Burst:             getEnvInt("WS_MESSAGE_BURST", 20),
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// HasDatabase returns true if a database URL is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
