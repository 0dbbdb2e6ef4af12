package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the risk engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LLMConfig configures the OpenAI-compatible completion and embedding
// backend. An empty API key disables the backend entirely; the engine then
// runs on deterministic fallbacks.
type LLMConfig struct {
	BaseURL         string        `yaml:"baseURL"`
	APIKey          string        `yaml:"apiKey"`
	CompletionModel string        `yaml:"completionModel"`
	EmbeddingModel  string        `yaml:"embeddingModel"`
	Timeout         time.Duration `yaml:"timeout"`
}

// StoreConfig configures access to the event store's HTTP API.
type StoreConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	PoolPath    string        `yaml:"poolPath"`
	EventsPath  string        `yaml:"eventsPath"`
	ReviewsPath string        `yaml:"reviewsPath"`
	Timeout     time.Duration `yaml:"timeout"`
	PoolLimit   int           `yaml:"poolLimit"`
}

// TaxonomyConfig controls taxonomy pack loading.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

// ScoringConfig tunes the quantitative scorer.
type ScoringConfig struct {
	MaxContentLength int `yaml:"maxContentLength"`
}

// RetrievalConfig tunes similarity retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

// AlertsConfig controls webhook alerting for high-risk events.
type AlertsConfig struct {
	WebhookURL string        `yaml:"webhookURL"`
	Threshold  float64       `yaml:"threshold"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of candidate-pool reads.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	PoolTTL      time.Duration `yaml:"poolTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RISK_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:         "https://api.openai.com/v1",
			CompletionModel: "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			Timeout:         10 * time.Second,
		},
		Store: StoreConfig{
			PoolPath:    "/api/v1/events/pool",
			EventsPath:  "/api/v1/events",
			ReviewsPath: "/api/v1/reviews",
			Timeout:     5 * time.Second,
			PoolLimit:   100,
		},
		Taxonomy:  TaxonomyConfig{Path: "configs/taxonomy.yaml"},
		Scoring:   ScoringConfig{MaxContentLength: 1000},
		Retrieval: RetrievalConfig{TopK: 3},
		Alerts: AlertsConfig{
			Threshold: 0.6,
			Timeout:   5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			PoolTTL:      2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RISK_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RISK_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("RISK_ENGINE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("RISK_ENGINE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("RISK_ENGINE_LLM_COMPLETION_MODEL"); v != "" {
		cfg.LLM.CompletionModel = v
	}
	if v := os.Getenv("RISK_ENGINE_LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("RISK_ENGINE_STORE_BASE_URL"); v != "" {
		cfg.Store.BaseURL = v
	}
	if v := os.Getenv("RISK_ENGINE_STORE_POOL_PATH"); v != "" {
		cfg.Store.PoolPath = v
	}
	if v := os.Getenv("RISK_ENGINE_STORE_EVENTS_PATH"); v != "" {
		cfg.Store.EventsPath = v
	}
	if v := os.Getenv("RISK_ENGINE_STORE_REVIEWS_PATH"); v != "" {
		cfg.Store.ReviewsPath = v
	}
	if v := os.Getenv("RISK_ENGINE_STORE_POOL_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Store.PoolLimit = limit
		}
	}
	if v := os.Getenv("RISK_ENGINE_TAXONOMY_PATH"); v != "" {
		cfg.Taxonomy.Path = v
	}
	if v := os.Getenv("RISK_ENGINE_SCORING_MAX_CONTENT_LENGTH"); v != "" {
		if length, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.MaxContentLength = length
		}
	}
	if v := os.Getenv("RISK_ENGINE_RETRIEVAL_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("RISK_ENGINE_ALERT_WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("RISK_ENGINE_ALERT_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alerts.Threshold = threshold
		}
	}
	if v := os.Getenv("RISK_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RISK_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("RISK_ENGINE_CACHE_POOL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.PoolTTL = d
		}
	}
}
