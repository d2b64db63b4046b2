package bootstrap

import (
	"github.com/newsloom/source-manager/internal/aiclient"
	"github.com/newsloom/source-manager/internal/analyzer"
	"github.com/newsloom/source-manager/internal/api"
	"github.com/newsloom/source-manager/internal/config"
	"github.com/newsloom/source-manager/internal/database"
	"github.com/newsloom/source-manager/internal/events"
	"github.com/newsloom/source-manager/internal/handlers"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/repository"
	"github.com/newsloom/source-manager/internal/synthesis"
)

// SetupHTTPServer assembles the synthesis pipeline, repository, handlers,
// and HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	db *database.DB,
	publisher *events.Publisher,
	log logger.Logger,
) *api.Server {
	pageAnalyzer := analyzer.NewClient(cfg.Analyzer, log)
	generator := aiclient.NewClient(cfg.AI, log)
	orchestrator := synthesis.NewOrchestrator(pageAnalyzer, generator, log)

	sourceRepo := repository.NewSourceRepository(db.DB(), log)
	sourceHandler := handlers.NewSourceHandler(
		orchestrator,
		sourceRepo,
		publisher,
		cfg.Batch.Workers,
		log,
	)

	router := api.NewRouter(sourceHandler, cfg.Server.CORSOrigins, log)
	return api.NewServer(cfg, router, log)
}
