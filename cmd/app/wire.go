//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/rihla/internal/bootstrap"
	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/internal/infra/config"
	httpiface "github.com/yanqian/rihla/internal/interface/http"
	"github.com/yanqian/rihla/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideGenerationConfig,
		provideGatewayConfig,
		provideEnrichmentConfig,
		provideModelProvider,
		provideTokenCounter,
		provideAuditLog,
		provideImageArchive,
		provideLandmarkDetector,
		provideVideoSearcher,
		provideVideoCache,
		generation.NewGateway,
		generation.NewService,
		enrichment.NewService,
		wire.Bind(new(generation.ModelInvoker), new(*generation.Gateway)),
		provideHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
