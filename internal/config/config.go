package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	LogLevel        string
	LogFile         string
	JWTSecret       string
	TokenTTL        time.Duration
	NearbyRadiusKm  float64
	FrontendURL     string
	PosterBackend   string
	PosterPath      string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	KafkaBroker     string
	KafkaTopic      string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":3001"),
		DBPath:          getEnv("DB_PATH", "/data/shopexplore.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getDuration("TOKEN_TTL", 24*time.Hour),
		NearbyRadiusKm:  getFloat("NEARBY_RADIUS_KM", 2),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		PosterBackend:   getEnv("POSTER_BACKEND", "local"),
		PosterPath:      getEnv("POSTER_LOCAL_PATH", "/data/posters"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", "shop-posters"),
		S3UseSSL:        getEnv("S3_USE_SSL", "false") == "true",
		KafkaBroker:     getEnv("KAFKA_BROKER", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "shop-events"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid config value", "key", key, "value", raw)
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid config value", "key", key, "value", raw)
		return defaultVal
	}
	return v
}
