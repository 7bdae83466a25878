package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig             `yaml:"http"`
	LLM          LLMConfig              `yaml:"llm"`
	Models       map[string]ModelConfig `yaml:"models"`
	Gateway      GatewayConfig          `yaml:"gateway"`
	Heritage     HeritageConfig         `yaml:"heritage"`
	Vision       VisionConfig           `yaml:"vision"`
	Videos       VideosConfig           `yaml:"videos"`
	Audit        AuditConfig            `yaml:"audit"`
	ImageArchive ImageArchiveConfig     `yaml:"imageArchive"`
	Diagnostics  DiagnosticsConfig      `yaml:"diagnostics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address            string          `yaml:"address"`
	ReadTimeout        time.Duration   `yaml:"readTimeout"`
	WriteTimeout       time.Duration   `yaml:"writeTimeout"`
	RateLimit          RateLimitConfig `yaml:"rateLimit"`
	AllowedOrigins     []string        `yaml:"allowedOrigins"`
	ExposeErrorDetails bool            `yaml:"exposeErrorDetails"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	AppURL      string        `yaml:"appUrl"`
	AppTitle    string        `yaml:"appTitle"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
	Gemini      GeminiConfig  `yaml:"gemini"`
}

// GeminiConfig is used when llm.provider is gemini.
type GeminiConfig struct {
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// ModelConfig overrides the built-in call spec for one content kind.
// Zero values keep the default.
type ModelConfig struct {
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

// GatewayConfig tunes the model gateway.
type GatewayConfig struct {
	RetryBackoff    time.Duration `yaml:"retryBackoff"`
	RawPreviewChars int           `yaml:"rawPreviewChars"`
	AuditTimeout    time.Duration `yaml:"auditTimeout"`
}

// HeritageConfig limits heritage uploads.
type HeritageConfig struct {
	MaxImageBytes int64 `yaml:"maxImageBytes"`
}

// VisionConfig enables the optional landmark hint.
type VisionConfig struct {
	Enabled  bool    `yaml:"enabled"`
	APIKey   string  `yaml:"apiKey"`
	Endpoint string  `yaml:"endpoint"`
	MinScore float64 `yaml:"minScore"`
}

// VideosConfig controls video search and its cache.
type VideosConfig struct {
	APIKey           string        `yaml:"apiKey"`
	Endpoint         string        `yaml:"endpoint"`
	CacheTTL         time.Duration `yaml:"cacheTtl"`
	MaxResults       int           `yaml:"maxResults"`
	BatchConcurrency int           `yaml:"batchConcurrency"`
	Redis            RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuditConfig controls where generation diagnostics are kept.
type AuditConfig struct {
	Capacity int            `yaml:"capacity"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ImageArchiveConfig describes the optional S3-compatible upload archive.
type ImageArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// DiagnosticsConfig toggles the diagnostics endpoints.
type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled"`
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

var modelKinds = []string{"itinerary", "heritage_text", "heritage_image", "sustainability", "translation", "chat"}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.ExposeErrorDetails, "HTTP_EXPOSE_ERROR_DETAILS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.AppURL, "LLM_APP_URL")
	setString(&cfg.LLM.AppTitle, "LLM_APP_TITLE")
	setString(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.Gemini.Model, "GEMINI_MODEL")

	for _, kind := range modelKinds {
		if v := os.Getenv("MODEL_" + strings.ToUpper(kind)); v != "" {
			if cfg.Models == nil {
				cfg.Models = map[string]ModelConfig{}
			}
			m := cfg.Models[kind]
			m.Model = v
			cfg.Models[kind] = m
		}
	}

	setDuration(&cfg.Gateway.RetryBackoff, "GATEWAY_RETRY_BACKOFF")

	if v := os.Getenv("HERITAGE_MAX_IMAGE_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Heritage.MaxImageBytes = parsed
		}
	}

	setBool(&cfg.Vision.Enabled, "VISION_ENABLED")
	setString(&cfg.Vision.APIKey, "GOOGLE_VISION_API_KEY")

	setString(&cfg.Videos.APIKey, "YOUTUBE_API_KEY")
	setDuration(&cfg.Videos.CacheTTL, "VIDEO_CACHE_TTL")
	setInt(&cfg.Videos.BatchConcurrency, "VIDEO_BATCH_CONCURRENCY")
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Videos.Redis.Addr = v
		cfg.Videos.Redis.Enabled = true
	}

	setString(&cfg.Audit.Postgres.DSN, "AUDIT_POSTGRES_DSN")

	setBool(&cfg.ImageArchive.Enabled, "IMAGE_ARCHIVE_ENABLED")
	setString(&cfg.ImageArchive.Endpoint, "IMAGE_ARCHIVE_ENDPOINT")
	setString(&cfg.ImageArchive.AccessKey, "IMAGE_ARCHIVE_ACCESS_KEY")
	setString(&cfg.ImageArchive.SecretKey, "IMAGE_ARCHIVE_SECRET_KEY")
	setString(&cfg.ImageArchive.Bucket, "IMAGE_ARCHIVE_BUCKET")
	setString(&cfg.ImageArchive.Region, "IMAGE_ARCHIVE_REGION")

	setBool(&cfg.Diagnostics.Enabled, "DIAGNOSTICS_ENABLED")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			AllowedOrigins: []string{"*"},
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenRouter,
			BaseURL:     "https://openrouter.ai/api/v1",
			AppTitle:    "Rihla",
			HTTPTimeout: 90 * time.Second,
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Gateway: GatewayConfig{
			RetryBackoff:    250 * time.Millisecond,
			RawPreviewChars: 500,
			AuditTimeout:    3 * time.Second,
		},
		Heritage: HeritageConfig{
			MaxImageBytes: 10 << 20,
		},
		Vision: VisionConfig{
			MinScore: 0.5,
		},
		Videos: VideosConfig{
			CacheTTL:         time.Hour,
			MaxResults:       2,
			BatchConcurrency: 2,
		},
		Audit: AuditConfig{
			Capacity: 500,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		ImageArchive: ImageArchiveConfig{
			Bucket: "rihla-heritage",
			Region: "auto",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q", ProviderOpenRouter, ProviderGemini)
	}
	for kind, m := range c.Models {
		if !knownKind(kind) {
			return fmt.Errorf("models.%s is not a known content kind", kind)
		}
		if m.MaxTokens < 0 || m.Timeout < 0 || m.MaxRetries < 0 || m.Temperature < 0 {
			return fmt.Errorf("models.%s cannot hold negative values", kind)
		}
	}
	if c.Gateway.RetryBackoff < 0 {
		return errors.New("gateway.retryBackoff cannot be negative")
	}
	if c.Heritage.MaxImageBytes <= 0 {
		return errors.New("heritage.maxImageBytes must be positive")
	}
	if c.Vision.Enabled && strings.TrimSpace(c.Vision.APIKey) == "" {
		return errors.New("vision.apiKey cannot be empty when vision is enabled")
	}
	if c.Videos.CacheTTL <= 0 {
		return errors.New("videos.cacheTtl must be positive")
	}
	if c.Videos.MaxResults <= 0 || c.Videos.MaxResults > 50 {
		return errors.New("videos.maxResults must be between 1 and 50")
	}
	if c.Videos.BatchConcurrency <= 0 {
		return errors.New("videos.batchConcurrency must be positive")
	}
	if c.Videos.Redis.Enabled && strings.TrimSpace(c.Videos.Redis.Addr) == "" {
		return errors.New("videos.redis.addr cannot be empty when redis cache is enabled")
	}
	if c.ImageArchive.Enabled {
		if strings.TrimSpace(c.ImageArchive.Endpoint) == "" {
			return errors.New("imageArchive.endpoint cannot be empty when the archive is enabled")
		}
		if strings.TrimSpace(c.ImageArchive.Bucket) == "" {
			return errors.New("imageArchive.bucket cannot be empty when the archive is enabled")
		}
	}
	return nil
}

func knownKind(kind string) bool {
	for _, k := range modelKinds {
		if k == kind {
			return true
		}
	}
	return false
}
