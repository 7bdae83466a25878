package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/internal/infra/auditrepo"
	"github.com/yanqian/rihla/internal/infra/config"
	"github.com/yanqian/rihla/internal/infra/imagestore"
	"github.com/yanqian/rihla/internal/infra/llm/gemini"
	"github.com/yanqian/rihla/internal/infra/llm/openrouter"
	"github.com/yanqian/rihla/internal/infra/resultcache"
	"github.com/yanqian/rihla/internal/infra/tokencount"
	"github.com/yanqian/rihla/internal/infra/video/youtube"
	"github.com/yanqian/rihla/internal/infra/vision/cloudvision"
	httpiface "github.com/yanqian/rihla/internal/interface/http"
	"github.com/yanqian/rihla/pkg/util"
)

func provideGenerationConfig(cfg *config.Config) generation.Config {
	overrides := make(map[generation.Kind]generation.ModelCallSpec, len(cfg.Models))
	for kind, m := range cfg.Models {
		overrides[generation.Kind(kind)] = generation.ModelCallSpec{
			ModelID:         m.Model,
			MaxOutputTokens: m.MaxTokens,
			Temperature:     m.Temperature,
			Timeout:         m.Timeout,
			MaxRetries:      m.MaxRetries,
		}
	}
	return generation.Config{
		Models:          generation.NewModelTable(overrides),
		MaxImageBytes:   cfg.Heritage.MaxImageBytes,
		RawPreviewChars: cfg.Gateway.RawPreviewChars,
		AuditTimeout:    cfg.Gateway.AuditTimeout,
	}
}

func provideGatewayConfig(cfg *config.Config) generation.GatewayConfig {
	return generation.GatewayConfig{RetryBackoff: cfg.Gateway.RetryBackoff}
}

func provideEnrichmentConfig(cfg *config.Config) enrichment.Config {
	return enrichment.Config{
		MaxResults:       cfg.Videos.MaxResults,
		BatchConcurrency: cfg.Videos.BatchConcurrency,
	}
}

func provideModelProvider(cfg *config.Config, logger *slog.Logger) (generation.Provider, func(), error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		provider, err := gemini.NewProvider(context.Background(), gemini.Options{
			APIKey:   cfg.LLM.Gemini.APIKey,
			Model:    cfg.LLM.Gemini.Model,
			Endpoint: cfg.LLM.Gemini.Endpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini provider: %w", err)
		}
		logger.Info("model provider enabled", "provider", config.ProviderGemini, "model", cfg.LLM.Gemini.Model)
		cleanup := func() {
			if err := provider.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		}
		return provider, cleanup, nil
	default:
		client, err := openrouter.NewClient(openrouter.Options{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			AppURL:      cfg.LLM.AppURL,
			AppTitle:    cfg.LLM.AppTitle,
			HTTPTimeout: cfg.LLM.HTTPTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init openrouter client: %w", err)
		}
		logger.Info("model provider enabled", "provider", config.ProviderOpenRouter, "base_url", cfg.LLM.BaseURL)
		return client, func() {}, nil
	}
}

func provideTokenCounter(logger *slog.Logger) generation.TokenCounter {
	return tokencount.NewEstimator(logger)
}

func provideAuditLog(cfg *config.Config, logger *slog.Logger) (generation.AuditLog, func()) {
	fallback := auditrepo.NewMemoryRepository(cfg.Audit.Capacity)
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Audit.Postgres.DSN)
	if dsn == "" {
		logger.Info("audit postgres dsn not set, using memory repository")
		return fallback, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop
	}
	if cfg.Audit.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Audit.Postgres.MaxConns
	}
	if cfg.Audit.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Audit.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop
	}
	repo := auditrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare audit table, using memory repository", "error", err)
		pool.Close()
		return fallback, noop
	}
	logger.Info("audit postgres repository enabled")
	return repo, pool.Close
}

// provideImageArchive returns nil when archiving is disabled so uploads are not kept at all.
func provideImageArchive(cfg *config.Config, logger *slog.Logger) generation.ImageArchive {
	if !cfg.ImageArchive.Enabled {
		return nil
	}
	store, err := imagestore.NewMinioStore(imagestore.MinioOptions{
		Endpoint:  cfg.ImageArchive.Endpoint,
		AccessKey: cfg.ImageArchive.AccessKey,
		SecretKey: cfg.ImageArchive.SecretKey,
		Bucket:    cfg.ImageArchive.Bucket,
		Region:    cfg.ImageArchive.Region,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize image archive, using memory store", "error", err)
		return imagestore.NewMemoryStore()
	}
	logger.Info("image archive enabled", "bucket", cfg.ImageArchive.Bucket)
	return store
}

func provideLandmarkDetector(cfg *config.Config, logger *slog.Logger) generation.LandmarkDetector {
	if !cfg.Vision.Enabled {
		return nil
	}
	detector, err := cloudvision.NewDetector(context.Background(), cloudvision.Options{
		APIKey:   cfg.Vision.APIKey,
		Endpoint: cfg.Vision.Endpoint,
		MinScore: cfg.Vision.MinScore,
	})
	if err != nil {
		logger.Error("failed to initialize landmark detection, continuing without it", "error", err)
		return nil
	}
	logger.Info("landmark detection enabled", "min_score", cfg.Vision.MinScore)
	return detector
}

func provideVideoSearcher(cfg *config.Config, logger *slog.Logger) (enrichment.VideoSearcher, error) {
	client, err := youtube.NewClient(context.Background(), youtube.Options{
		APIKey:   cfg.Videos.APIKey,
		Endpoint: cfg.Videos.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init youtube client: %w", err)
	}
	if !client.Enabled() {
		logger.Info("youtube api key not set, video search returns empty results")
	}
	return client, nil
}

func provideVideoCache(cfg *config.Config, logger *slog.Logger) (enrichment.VideoCache, func()) {
	memory := resultcache.NewMemory[[]generation.Video](cfg.Videos.CacheTTL, util.SystemClock{})
	noop := func() {}
	if !cfg.Videos.Redis.Enabled {
		return memory, noop
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return memory, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return memory, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return memory, noop
	}
	logger.Info("video valkey cache enabled", "addr", cfg.Videos.Redis.Addr)
	return resultcache.NewValkey[[]generation.Video](client, "videos", cfg.Videos.CacheTTL, logger), client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Videos.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.Videos.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Videos.Redis.Addr}}, nil
}

func provideHandler(cfg *config.Config, generationSvc generation.Service, enrichmentSvc enrichment.Service, logger *slog.Logger) *httpiface.Handler {
	return httpiface.NewHandler(generationSvc, enrichmentSvc, cfg.Heritage.MaxImageBytes, logger)
}
