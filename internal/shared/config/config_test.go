package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "none", cfg.ReasoningProvider)
	assert.Equal(t, 8*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowOrigin)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("REASONING_PROVIDER", "google")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, "gemini", cfg.ReasoningProvider)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin)
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOCAL_STORE_DIR=/tmp/from-dotenv\nPORT=7000\n"), 0o644))
	t.Setenv("PORT", "7100")
	t.Setenv("LOCAL_STORE_DIR", "")
	os.Unsetenv("LOCAL_STORE_DIR")

	cfg := Load()
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "/tmp/from-dotenv", cfg.LocalStoreDir)
}

func TestWithDefaultsFillsZeroConfig(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, uint32(5), cfg.BreakerMinRequests)
}
