package synthesis

import (
	"context"

	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
)

// Analyzer inspects a website's markup for article-link patterns, feeds, and
// framework fingerprints.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*models.AnalysisResult, error)
}

// Generator infers a source configuration through a generative collaborator.
type Generator interface {
	Generate(ctx context.Context, identifier string) (*models.SourceConfig, error)
}

// Orchestrator sequences classification, deterministic building, structural
// analysis, and generative fallback into one pipeline. It holds no state
// between invocations and is safe for concurrent use.
type Orchestrator struct {
	analyzer  Analyzer
	generator Generator
	log       logger.Logger
}

// NewOrchestrator creates a synthesis orchestrator. Both collaborators are
// required for the website path; the telegram path uses neither.
func NewOrchestrator(analyzer Analyzer, generator Generator, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		analyzer:  analyzer,
		generator: generator,
		log:       log,
	}
}

// Synthesize produces a validated config for the identifier or a single
// *SynthesisError naming the failing stage. Telegram identifiers are built
// deterministically and never escalate to the generative stage. Website
// identifiers are structurally analyzed first; any analyzer failure — and an
// analysis that discovers neither selectors nor feeds — escalates to the
// generative fallback exactly once. Nothing is retried here; retry policy
// belongs to the scheduler driving synthesis.
func (o *Orchestrator) Synthesize(ctx context.Context, identifier string) (*models.SourceConfig, error) {
	platform := Classify(identifier)

	if platform == models.PlatformTelegram {
		cfg := BuildTelegramConfig(identifier)
		o.log.Info("Synthesized telegram config",
			logger.String("identifier", identifier),
			logger.String("username", cfg.Telegram.Username),
		)
		return cfg, nil
	}

	result, err := o.analyzer.Analyze(ctx, identifier)
	if err == nil && result.Empty() {
		o.log.Info("Structural analysis found nothing actionable, escalating",
			logger.String("identifier", identifier),
		)
		return o.fallback(ctx, identifier)
	}
	if err != nil {
		o.log.Warn("Structural analysis failed, escalating",
			logger.String("identifier", identifier),
			logger.Error(err),
		)
		return o.fallback(ctx, identifier)
	}

	cfg := BuildWebsiteConfig(result)
	o.log.Info("Synthesized website config from structural analysis",
		logger.String("identifier", identifier),
		logger.String("framework", result.DetectedFramework),
		logger.Int("selectors", len(cfg.Website.ArticleLinkSelectors)),
		logger.Int("rss_feeds", len(cfg.Website.RSSFeeds)),
	)
	return cfg, nil
}

// fallback invokes the generative collaborator once. Its failure is terminal
// for this identifier.
func (o *Orchestrator) fallback(ctx context.Context, identifier string) (*models.SourceConfig, error) {
	cfg, err := o.generator.Generate(ctx, identifier)
	if err != nil {
		stage := failureStage(err)
		o.log.Error("Generative fallback failed",
			logger.String("identifier", identifier),
			logger.String("stage", string(stage)),
			logger.Error(err),
		)
		return nil, &SynthesisError{Identifier: identifier, Stage: stage, Err: err}
	}

	o.log.Info("Synthesized config via generative fallback",
		logger.String("identifier", identifier),
		logger.String("platform", string(cfg.Platform)),
	)
	return cfg, nil
}
