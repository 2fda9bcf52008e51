package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	DatabaseDSN string
	JwtSecret   string
	ServerPort  string

	Timezone string

	// Face verification
	FaceDetectorURL string
	FaceMetric      string
	FaceThreshold   float64

	// Object storage (S3-compatible)
	StorageBucket string

	// RBAC
	PermCacheTTL time.Duration

	// Worker
	WorkerConcurrency int
}

// NewConfig reads configuration from the environment. A .env file is
// loaded first if present.
func NewConfig() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		DatabaseDSN:     getEnv("DATABASE_DSN", "postgres://localhost:5432/absensi?sslmode=disable"),
		JwtSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Timezone:        getEnv("TIMEZONE", "Asia/Makassar"),
		FaceDetectorURL: getEnv("FACE_DETECTOR_URL", "http://localhost:18081"),
		FaceMetric:      getEnv("FACE_METRIC", "cosine"),
		FaceThreshold:   getEnvFloat("FACE_THRESHOLD", 0.45),
		StorageBucket:   getEnv("STORAGE_BUCKET", "absensi-face"),
		PermCacheTTL:    time.Duration(getEnvInt("PERM_CACHE_TTL_SECONDS", 60)) * time.Second,

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return fallback
}
