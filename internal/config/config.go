package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds the application's configuration.
type Config struct {
	Port           string
	AllowedOrigins []string

	SessionStore string
	SessionTTL   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	MaxTemperature float64
	MinHumidity    float64
}

// InfluxEnabled reports whether readings should be mirrored to InfluxDB.
func (c Config) InfluxEnabled() bool {
	return c.InfluxDBURL != ""
}

// AuthEnabled reports whether the JSON API requires a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// LoadConfig loads the configuration from the given .env files (or ./.env)
// and the process environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 {
			return Config{}, fmt.Errorf("loading env file: %w", err)
		}
		// No .env file, relying on system environment variables.
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "8000"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
		SessionStore:   strings.ToLower(getenv("SESSION_STORE", SessionStoreMemory)),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		InfluxDBURL:    os.Getenv("INFLUXDB_URL"),
		InfluxDBToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxDBOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxDBBucket: getenv("INFLUXDB_BUCKET", "mushroom_growth"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      getenv("AUTH0_ISSUER", "mushtrack"),
		JWTAudience:    getenv("AUTH0_AUDIENCE", "mushtrack-api"),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getenv("SESSION_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.RedisDB, err = strconv.Atoi(getenv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.MaxTemperature, err = strconv.ParseFloat(getenv("MAX_TEMPERATURE", "30"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid MAX_TEMPERATURE: %w", err)
	}
	if cfg.MinHumidity, err = strconv.ParseFloat(getenv("MIN_HUMIDITY", "80"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid MIN_HUMIDITY: %w", err)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	switch cfg.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return Config{}, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, cfg.SessionStore)
	}

	influxSet := 0
	for _, v := range []string{cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg} {
		if v != "" {
			influxSet++
		}
	}
	if influxSet != 0 && influxSet != 3 {
		return Config{}, fmt.Errorf("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG environment variables")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
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
