package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, 120*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 4, cfg.Explainer.Workers)
	assert.Equal(t, 100, cfg.Explainer.QueueSize)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("OLLAMA_TIMEOUT", "5s")
	t.Setenv("DATASET_PATH", "/data/ingredients.csv")
	t.Setenv("APP_EXPLAINER_WORKERS", "2")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 5*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, "/data/ingredients.csv", cfg.Dataset.Path)
	assert.Equal(t, 2, cfg.Explainer.Workers)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"zero workers":    {"APP_EXPLAINER_WORKERS": "0"},
		"zero queue":      {"APP_EXPLAINER_QUEUE_SIZE": "0"},
		"unknown backend": {"CACHE_BACKEND": "memcached"},
		"empty model":     {"OLLAMA_MODEL": " "},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
