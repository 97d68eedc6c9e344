package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"citation-monitor/internal/repo"
	"citation-monitor/internal/services/citation"
	"citation-monitor/internal/services/provider"
)

// Summary is the final tally of one run. Attempted counts every (provider,
// query) pair reached; each attempt ends up as exactly one of stored, skipped
// or errored.
type Summary struct {
	Attempted int
	Stored    int
	Skipped   int
	Errored   int
}

// Orchestrator drives one run: the cross product of active providers and
// active queries, strictly sequentially with one outstanding call at a time.
// Per-query failures are recorded and never abort the run; only storage
// failures and cancellation do.
type Orchestrator struct {
	repo         repo.Repository
	providers    []provider.Provider
	queries      []repo.Query
	targetDomain string
	pause        time.Duration
	runID        string
}

func NewOrchestrator(r repo.Repository, providers []provider.Provider, queries []repo.Query, targetDomain string, pause time.Duration) *Orchestrator {
	return &Orchestrator{
		repo:         r,
		providers:    providers,
		queries:      queries,
		targetDomain: targetDomain,
		pause:        pause,
		runID:        newRunID(),
	}
}

// newRunID builds a time-based identifier with a random suffix so reruns
// within the same second stay distinct.
func newRunID() string {
	return fmt.Sprintf("run_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}

func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the full sweep. It returns a non-nil error only for fatal
// outcomes (configuration, storage failure, cancellation); per-query provider
// errors are recorded as error results and reflected in the summary instead.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if len(o.providers) == 0 {
		return summary, errors.New("no providers initialized")
	}
	if len(o.queries) == 0 {
		return summary, errors.New("no active queries configured")
	}

	if err := o.repo.StartRun(ctx, o.runID); err != nil {
		return summary, err
	}

	log.Info().
		Str("run_id", o.runID).
		Int("providers", len(o.providers)).
		Int("queries", len(o.queries)).
		Msg("Run started")

	total := len(o.providers) * len(o.queries)
	for _, p := range o.providers {
		log.Info().Str("provider", p.ID()).Str("name", p.Name()).Msg("Sweeping provider")

		for _, q := range o.queries {
			if err := ctx.Err(); err != nil {
				return summary, o.fail(fmt.Errorf("run interrupted: %w", err))
			}

			summary.Attempted++
			progress := fmt.Sprintf("%d/%d", summary.Attempted, total)

			resp, err := p.Query(ctx, q.Text)
			if err != nil {
				// The call itself may have died because the run was
				// cancelled; that is an interrupt, not a provider error.
				if ctx.Err() != nil {
					return summary, o.fail(fmt.Errorf("run interrupted: %w", ctx.Err()))
				}

				summary.Errored++
				log.Warn().
					Str("progress", progress).
					Str("provider", p.ID()).
					Str("query_id", q.ID).
					Err(err).
					Msg("Query failed")

				errDetail := err.Error()
				if storeErr := o.repo.StoreResult(ctx, repo.StoreResultParams{
					RunID:     o.runID,
					QueryID:   q.ID,
					QueryText: q.Text,
					ModelID:   p.ID(),
					Error:     &errDetail,
				}); storeErr != nil {
					return summary, o.fail(storeErr)
				}
				continue
			}

			// Empty or whitespace-only answers are a skip: logged but not
			// persisted, so content-free noise never reaches storage.
			if strings.TrimSpace(resp.Text) == "" {
				summary.Skipped++
				log.Info().
					Str("progress", progress).
					Str("provider", p.ID()).
					Str("query_id", q.ID).
					Msg("Empty response, skipped")
				o.waitBetweenQueries(ctx)
				continue
			}

			searchQuery, citedURLs := p.ExtractMetadata(resp)
			targetCited := citation.IsTargetCited(citedURLs, resp.Text, o.targetDomain)

			elapsed := resp.ElapsedMS
			if err := o.repo.StoreResult(ctx, repo.StoreResultParams{
				RunID:          o.runID,
				QueryID:        q.ID,
				QueryText:      q.Text,
				ModelID:        p.ID(),
				ResponseText:   resp.Text,
				TargetCited:    targetCited,
				SearchQuery:    nullable(searchQuery),
				CitedURLs:      citedURLs,
				ResponseTimeMS: &elapsed,
			}); err != nil {
				return summary, o.fail(err)
			}
			summary.Stored++

			log.Info().
				Str("progress", progress).
				Str("provider", p.ID()).
				Str("query_id", q.ID).
				Bool("target_cited", targetCited).
				Int("cited_urls", len(citedURLs)).
				Int64("elapsed_ms", elapsed).
				Msg("Result stored")

			o.waitBetweenQueries(ctx)
		}
	}

	if err := o.repo.CompleteRun(ctx, o.runID, nil); err != nil {
		return summary, err
	}

	log.Info().
		Str("run_id", o.runID).
		Int("attempted", summary.Attempted).
		Int("stored", summary.Stored).
		Int("skipped", summary.Skipped).
		Int("errored", summary.Errored).
		Msg("Run completed")

	return summary, nil
}

// fail marks the run failed before propagating the fatal error. Marking is
// best-effort: if the run row itself can't be updated there is nothing more
// to do than report the original failure.
func (o *Orchestrator) fail(runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.repo.FailRun(ctx, o.runID, runErr.Error()); err != nil {
		log.Error().Err(err).Str("run_id", o.runID).Msg("Failed to record run failure")
	}
	return runErr
}

// waitBetweenQueries inserts the configured courtesy pause. Cancellation cuts
// it short; the cancellation itself is picked up at the top of the loop.
func (o *Orchestrator) waitBetweenQueries(ctx context.Context) {
	if o.pause <= 0 {
		return
	}
	timer := time.NewTimer(o.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
