package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App            AppConfig       `mapstructure:"app"`
	Server         ServerConfig    `mapstructure:"server"`
	Ollama         OllamaConfig    `mapstructure:"ollama"`
	Dataset        DatasetConfig   `mapstructure:"dataset"`
	Explainer      ExplainerConfig `mapstructure:"explainer"`
	Cache          CacheConfig     `mapstructure:"cache"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Metrics        MetricsConfig   `mapstructure:"metrics"`
	DedupWindow    time.Duration   `mapstructure:"dedup_window"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	MaxBodySize    int64           `mapstructure:"max_body_size"`
	LogLevel       string          `mapstructure:"log_level"`
	LogDir         string          `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OllamaConfig 本地模型服務配置
type OllamaConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// DatasetConfig 參考資料集配置
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// ExplainerConfig 未知成分解說配置
type ExplainerConfig struct {
	Workers   int `mapstructure:"workers"`    // 同時進行的模型請求數
	QueueSize int `mapstructure:"queue_size"` // 等待中的解說工作上限
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MetricsConfig Prometheus 指標配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	_ = godotenv.Load()

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("ollama.base_url", "APP_OLLAMA_BASE_URL", "OLLAMA_BASE_URL")
	_ = v.BindEnv("ollama.model", "APP_OLLAMA_MODEL", "OLLAMA_MODEL")
	_ = v.BindEnv("ollama.timeout", "APP_OLLAMA_TIMEOUT", "OLLAMA_TIMEOUT")
	_ = v.BindEnv("dataset.path", "APP_DATASET_PATH", "DATASET_PATH")
	_ = v.BindEnv("cache.enabled", "APP_CACHE_ENABLED", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "APP_CACHE_BACKEND", "CACHE_BACKEND")
	_ = v.BindEnv("cache.redis.addr", "APP_CACHE_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("cache.redis.password", "APP_CACHE_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("rate_limit.enabled", "APP_RATE_LIMIT_ENABLED", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "APP_RATE_LIMIT_REQUESTS", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "APP_RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "APP_DEDUP_WINDOW", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "APP_SERVER_PORT", "PORT")

	// 設定檔（config.yaml / config.toml ...）為選用
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "knowlabel")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")

	// Ollama 設定
	v.SetDefault("ollama.base_url", "http://127.0.0.1:11434")
	v.SetDefault("ollama.model", "llama3.2")
	v.SetDefault("ollama.timeout", "120s")
	v.SetDefault("ollama.max_retries", 1)
	v.SetDefault("ollama.temperature", 0.2)
	v.SetDefault("ollama.max_tokens", 512)

	// 資料集設定
	v.SetDefault("dataset.path", "combined_ingredient_dataset_appended.csv")

	// 解說設定
	v.SetDefault("explainer.workers", 4)
	v.SetDefault("explainer.queue_size", 100)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 指標設定
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("request_timeout", "140s")
	v.SetDefault("max_body_size", 1<<20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Dataset.Path == "" {
		return fmt.Errorf("dataset path is required")
	}

	if strings.TrimSpace(config.Ollama.BaseURL) == "" || strings.TrimSpace(config.Ollama.Model) == "" {
		return fmt.Errorf("ollama base url and model are required")
	}
	if config.Ollama.Timeout <= 0 {
		return fmt.Errorf("invalid ollama timeout")
	}
	if config.Ollama.MaxRetries < 0 {
		return fmt.Errorf("invalid ollama max retries")
	}

	if config.Explainer.Workers <= 0 {
		return fmt.Errorf("invalid explainer workers")
	}
	if config.Explainer.QueueSize <= 0 {
		return fmt.Errorf("invalid explainer queue size")
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.Redis.Addr == "" {
				return fmt.Errorf("redis address is required")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout")
	}
	if config.MaxBodySize <= 0 {
		return fmt.Errorf("invalid max body size")
	}

	return nil
}
