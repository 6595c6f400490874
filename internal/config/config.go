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

// Config captures the settings required to boot the investigation engine.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Engine      EngineConfig      `yaml:"engine"`
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Labeler     LabelerConfig     `yaml:"labeler"`
	Credibility CredibilityConfig `yaml:"credibility"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EngineConfig tunes path enumeration, scoring and classification.
type EngineConfig struct {
	MaxPathLength           int     `yaml:"maxPathLength"`
	DecisiveWeakenThreshold float64 `yaml:"decisiveWeakenThreshold"`
	WeakEdgeThreshold       float64 `yaml:"weakEdgeThreshold"`
	RecencyDecay            float64 `yaml:"recencyDecay"`
	ActiveThreshold         float64 `yaml:"activeThreshold"`
	WeakThreshold           float64 `yaml:"weakThreshold"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Valkey-backed caching of derived briefings.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          bool          `yaml:"tls"`
	BriefingTTL  time.Duration `yaml:"briefingTTL"`
}

// ExtractionConfig configures the external claim-extraction service client.
type ExtractionConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	SignalsPath string        `yaml:"signalsPath"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
}

// LabelerConfig configures the optional LLM hypothesis labeler.
type LabelerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
}

// CredibilityConfig locates the source-credibility rule pack.
type CredibilityConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INQUEST_CONFIG")
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
		Engine: EngineConfig{
			MaxPathLength:           12,
			DecisiveWeakenThreshold: 0.6,
			WeakEdgeThreshold:       0.5,
			RecencyDecay:            0.85,
			ActiveThreshold:         0.65,
			WeakThreshold:           0.35,
		},
		Storage: StorageConfig{Path: "inquest.db"},
		Cache: CacheConfig{
			Enabled:      false,
			BriefingTTL:  2 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Extraction: ExtractionConfig{
			SignalsPath: "/api/v1/extract/signals",
			Timeout:     5 * time.Second,
			CacheTTL:    5 * time.Minute,
		},
		Labeler: LabelerConfig{
			Host:  "http://127.0.0.1:11434",
			Model: "llama3.2",
		},
		Credibility: CredibilityConfig{Path: "configs/credibility/default.yaml"},
		Logging:     LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INQUEST_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("INQUEST_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("INQUEST_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("INQUEST_MAX_PATH_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxPathLength = n
		}
	}
	if v := os.Getenv("INQUEST_EXTRACTION_BASE_URL"); v != "" {
		cfg.Extraction.BaseURL = v
	}
	if v := os.Getenv("INQUEST_EXTRACTION_SIGNALS_PATH"); v != "" {
		cfg.Extraction.SignalsPath = v
	}
	if v := os.Getenv("INQUEST_LABELER_ENABLED"); v != "" {
		cfg.Labeler.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("INQUEST_LABELER_HOST"); v != "" {
		cfg.Labeler.Host = v
	}
	if v := os.Getenv("INQUEST_LABELER_MODEL"); v != "" {
		cfg.Labeler.Model = v
	}
	if v := os.Getenv("INQUEST_CREDIBILITY_PATH"); v != "" {
		cfg.Credibility.Path = v
	}
	if v := os.Getenv("INQUEST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INQUEST_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INQUEST_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("INQUEST_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INQUEST_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("INQUEST_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("INQUEST_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("INQUEST_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("INQUEST_CACHE_BRIEFING_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.BriefingTTL = d
		}
	}
}
