package config

import (
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	LabTickMillis     int
	LabMaxIterations  int
	MaxLabs           int
	DefaultElasticity float64

	// Idle lab cleanup
	LabIdleSeconds         int
	IdleWorkerPollInterval int

	// Security
	JWTSecret         string
	AdminSessionHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		LabTickMillis:     getEnvInt("LAB_TICK_MILLIS", 16),
		LabMaxIterations:  getEnvInt("LAB_MAX_ITERATIONS", 2000),
		MaxLabs:           getEnvInt("MAX_LABS", 200),
		DefaultElasticity: clampElasticity(getEnvFloat("DEFAULT_ELASTICITY", 1.0)),

		// Idle lab cleanup
		LabIdleSeconds:         getEnvInt("LAB_IDLE_SECONDS", 900),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 30),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		AdminSessionHours: getEnvInt("ADMIN_SESSION_HOURS", 12),
	}
}

// Default returns the configuration used when no environment is set. Tests use it.
func Default() *Config {
	return &Config{
		Environment:            "development",
		Port:                   "8080",
		LabTickMillis:          16,
		LabMaxIterations:       2000,
		MaxLabs:                200,
		DefaultElasticity:      1.0,
		LabIdleSeconds:         900,
		IdleWorkerPollInterval: 30,
		JWTSecret:              "change-me-in-production",
		AdminSessionHours:      12,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// clampElasticity keeps a configured coefficient of restitution inside [0, 1].
// NaN falls back to 1.
func clampElasticity(e float64) float64 {
	if math.IsNaN(e) {
		return 1
	}
	return math.Min(math.Max(e, 0), 1)
}
