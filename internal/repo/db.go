package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when a run identifier has no row.
var ErrRunNotFound = errors.New("run not found")

// NewDB opens a pgx connection pool and verifies connectivity.
func NewDB(databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Repository is the storage surface the monitor core and the dashboard read
// API write and read through.
type Repository interface {
	StartRun(ctx context.Context, runID string) error
	CompleteRun(ctx context.Context, runID string, notes *string) error
	FailRun(ctx context.Context, runID string, errorDetail string) error
	SyncQueries(ctx context.Context, queries []Query) error
	StoreResult(ctx context.Context, arg StoreResultParams) error
	ListRuns(ctx context.Context, limit int32) ([]Run, error)
	GetRunSummary(ctx context.Context, runID string) (Run, error)
	ListResponses(ctx context.Context, runID string) ([]Response, error)
	CitationStats(ctx context.Context) ([]CitationStat, error)
}

// Run is one complete sweep of all active providers over all active queries.
type Run struct {
	RunID           string     `json:"run_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	Status          string     `json:"status"`
	QueriesExecuted int        `json:"queries_executed"`
	ErrorsCount     int        `json:"errors_count"`
	Notes           *string    `json:"notes"`
}

// Query is one natural-language prompt from the configured catalog.
type Query struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Category *string `json:"category"`
	Priority int     `json:"priority"`
	Active   bool    `json:"active"`
}

// Response is one stored (run, provider, query) outcome: either a usable
// answer or an error record, never both.
type Response struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	QueryID        string    `json:"query_id"`
	ModelID        string    `json:"model_id"`
	QueryText      string    `json:"query_text"`
	ResponseText   string    `json:"response"`
	TargetCited    bool      `json:"target_cited"`
	SearchQuery    *string   `json:"search_query"`
	CitedURLs      []string  `json:"cited_urls"`
	ResponseTimeMS *int64    `json:"response_time_ms"`
	Error          *string   `json:"error"`
}

// StoreResultParams carries either a successful result or an error result
// through the same call shape. Error set means ResponseText is empty and
// TargetCited is false.
type StoreResultParams struct {
	RunID          string
	QueryID        string
	QueryText      string
	ModelID        string
	ResponseText   string
	TargetCited    bool
	SearchQuery    *string
	CitedURLs      []string
	ResponseTimeMS *int64
	Error          *string
}

// CitationStat aggregates stored responses per provider.
type CitationStat struct {
	ModelID      string  `json:"model_id"`
	Responses    int     `json:"responses"`
	Cited        int     `json:"cited"`
	CitationRate float64 `json:"citation_rate"`
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) StartRun(ctx context.Context, runID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs (run_id, started_at, status, queries_executed, errors_count)
		VALUES ($1, $2, 'running', 0, 0)`,
		runID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", runID, err)
	}
	return nil
}

func (r *repository) CompleteRun(ctx context.Context, runID string, notes *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE runs
		SET completed_at = $1, status = 'completed', notes = $2
		WHERE run_id = $3`,
		time.Now(), notes, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return nil
}

func (r *repository) FailRun(ctx context.Context, runID string, errorDetail string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE runs
		SET completed_at = $1, status = 'failed', notes = $2
		WHERE run_id = $3`,
		time.Now(), errorDetail, runID)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	return nil
}

func (r *repository) SyncQueries(ctx context.Context, queries []Query) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin query sync: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range queries {
		_, err := tx.Exec(ctx, `
			INSERT INTO queries (id, query_text, category, priority, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				query_text = EXCLUDED.query_text,
				category = EXCLUDED.category,
				priority = EXCLUDED.priority,
				active = EXCLUDED.active`,
			q.ID, q.Text, q.Category, q.Priority, q.Active)
		if err != nil {
			return fmt.Errorf("failed to sync query %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit query sync: %w", err)
	}
	return nil
}

func (r *repository) StoreResult(ctx context.Context, arg StoreResultParams) error {
	citedURLs, err := json.Marshal(arg.CitedURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal cited URLs: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin result store: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO responses
			(run_id, timestamp, query_id, model_id, query_text, response,
			 target_referenced, search_query, cited_urls, response_time_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		arg.RunID, time.Now(), arg.QueryID, arg.ModelID, arg.QueryText,
		arg.ResponseText, arg.TargetCited, arg.SearchQuery, citedURLs,
		arg.ResponseTimeMS, arg.Error)
	if err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}

	// Error results bump the error counter, successful ones the executed
	// counter, keeping the run row's summary in step with the stored rows.
	column := "queries_executed"
	if arg.Error != nil {
		column = "errors_count"
	}
	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE runs SET %s = %s + 1 WHERE run_id = $1", column, column),
		arg.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit result store: %w", err)
	}
	return nil
}

func (r *repository) ListRuns(ctx context.Context, limit int32) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT run_id, started_at, completed_at, status, queries_executed, errors_count, notes
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.CompletedAt,
			&run.Status, &run.QueriesExecuted, &run.ErrorsCount, &run.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *repository) GetRunSummary(ctx context.Context, runID string) (Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `
		SELECT run_id, started_at, completed_at, status, queries_executed, errors_count, notes
		FROM runs
		WHERE run_id = $1`, runID).
		Scan(&run.RunID, &run.StartedAt, &run.CompletedAt, &run.Status,
			&run.QueriesExecuted, &run.ErrorsCount, &run.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

func (r *repository) ListResponses(ctx context.Context, runID string) ([]Response, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, timestamp, query_id, model_id, query_text, response,
		       target_referenced, search_query, cited_urls, response_time_ms, error
		FROM responses
		WHERE run_id = $1
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for run %s: %w", runID, err)
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		var resp Response
		var citedURLs []byte
		if err := rows.Scan(&resp.ID, &resp.RunID, &resp.Timestamp, &resp.QueryID,
			&resp.ModelID, &resp.QueryText, &resp.ResponseText, &resp.TargetCited,
			&resp.SearchQuery, &citedURLs, &resp.ResponseTimeMS, &resp.Error); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if len(citedURLs) > 0 {
			if err := json.Unmarshal(citedURLs, &resp.CitedURLs); err != nil {
				return nil, fmt.Errorf("failed to decode cited URLs: %w", err)
			}
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func (r *repository) CitationStats(ctx context.Context) ([]CitationStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT model_id,
		       COUNT(*) AS responses,
		       COUNT(*) FILTER (WHERE target_referenced) AS cited
		FROM responses
		WHERE error IS NULL
		GROUP BY model_id
		ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute citation stats: %w", err)
	}
	defer rows.Close()

	var stats []CitationStat
	for rows.Next() {
		var stat CitationStat
		if err := rows.Scan(&stat.ModelID, &stat.Responses, &stat.Cited); err != nil {
			return nil, fmt.Errorf("failed to scan citation stat: %w", err)
		}
		if stat.Responses > 0 {
			stat.CitationRate = float64(stat.Cited) / float64(stat.Responses)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
