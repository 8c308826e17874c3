package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/forPelevin/subalign/internal/ports"
)

// BatchItem is the outcome for one project of AlignAll.
type BatchItem struct {
	ProjectID string
	Report    AlignReport
	Err       error
}

// AlignAll aligns many projects with bounded concurrency. Generator calls
// share one rate limiter. A failing project is recorded in its item and
// does not stop the others. An empty ids list means every stored project.
func (u Usecase) AlignAll(ctx context.Context, ids []string) ([]BatchItem, error) {
	if len(ids) == 0 {
		projects, err := u.Projects(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
	}

	gen := u.d.LLM
	if gen != nil && u.s.RequestsPerMinute > 0 {
		gen = &limitedGenerator{
			gen:     gen,
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(u.s.RequestsPerMinute)), 1),
		}
	}

	u.d.Logger.Info("batch align starting",
		"projects", len(ids),
		"max_concurrent", u.s.MaxConcurrent,
		"rate_limit_rpm", u.s.RequestsPerMinute)

	items := make([]BatchItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.s.MaxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			report, err := u.alignWith(gctx, id, gen)
			if err != nil {
				u.d.Logger.Warn("batch align failed", "project", id, "error", err)
			}
			items[i] = BatchItem{ProjectID: id, Report: report, Err: err}
			// Cancellation is the only error that stops the batch.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return items, fmt.Errorf("batch align: %w", err)
	}
	return items, nil
}

type limitedGenerator struct {
	gen     ports.TextGenerator
	limiter *rate.Limiter
}

func (l *limitedGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return l.gen.GenerateText(ctx, systemPrompt, userPrompt)
}
