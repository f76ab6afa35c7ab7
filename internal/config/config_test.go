package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.PosterBackend)
	assert.Positive(t, cfg.NearbyRadiusKm)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("NEARBY_RADIUS_KM", "5.5")
	t.Setenv("POSTER_BACKEND", "s3")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5.5, cfg.NearbyRadiusKm)
	assert.Equal(t, "s3", cfg.PosterBackend)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, "localhost:9092", cfg.KafkaBroker)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("NEARBY_RADIUS_KM", "-1")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2.0, cfg.NearbyRadiusKm)
}
