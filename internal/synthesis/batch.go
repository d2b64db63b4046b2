package synthesis

import (
	"context"
	"sync"

	"github.com/newsloom/source-manager/internal/models"
)

// BatchResult is the per-identifier outcome of a batch synthesis.
type BatchResult struct {
	Identifier string
	Config     *models.SourceConfig
	Err        error
}

// SynthesizeBatch synthesizes configs for all identifiers with at most
// workers concurrent syntheses. Failures are collected per item; one failing
// identifier never aborts the others. Results are returned in input order.
func (o *Orchestrator) SynthesizeBatch(ctx context.Context, identifiers []string, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(identifiers))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, id := range identifiers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Identifier: id, Err: ctx.Err()}
				return
			}

			cfg, err := o.Synthesize(ctx, id)
			results[i] = BatchResult{Identifier: id, Config: cfg, Err: err}
		}(i, id)
	}
	wg.Wait()

	return results
}
