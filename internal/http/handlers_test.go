package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citation-monitor/internal/cache"
	"citation-monitor/internal/repo"
)

type stubRepo struct {
	runs      []repo.Run
	responses map[string][]repo.Response
	stats     []repo.CitationStat
	statCalls int
}

func (s *stubRepo) StartRun(ctx context.Context, runID string) error                  { return nil }
func (s *stubRepo) CompleteRun(ctx context.Context, runID string, notes *string) error { return nil }
func (s *stubRepo) FailRun(ctx context.Context, runID string, errorDetail string) error {
	return nil
}
func (s *stubRepo) SyncQueries(ctx context.Context, queries []repo.Query) error     { return nil }
func (s *stubRepo) StoreResult(ctx context.Context, arg repo.StoreResultParams) error { return nil }

func (s *stubRepo) ListRuns(ctx context.Context, limit int32) ([]repo.Run, error) {
	if int(limit) < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubRepo) GetRunSummary(ctx context.Context, runID string) (repo.Run, error) {
	for _, run := range s.runs {
		if run.RunID == runID {
			return run, nil
		}
	}
	return repo.Run{}, repo.ErrRunNotFound
}

func (s *stubRepo) ListResponses(ctx context.Context, runID string) ([]repo.Response, error) {
	return s.responses[runID], nil
}

func (s *stubRepo) CitationStats(ctx context.Context) ([]repo.CitationStat, error) {
	s.statCalls++
	return s.stats, nil
}

func newTestServer(t *testing.T, r *stubRepo) *httptest.Server {
	t.Helper()

	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	router := NewRouter()
	router.RegisterMonitorRoutes(NewMonitorHandler(r, c, time.Minute))
	router.RegisterHealthRoutes()

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func seededRepo() *stubRepo {
	errText := "quota exhausted"
	searchQuery := "paintball events near me"
	elapsed := int64(1234)
	return &stubRepo{
		runs: []repo.Run{
			{RunID: "run_20260831_120000_abcd1234", Status: "completed", QueriesExecuted: 2, ErrorsCount: 1},
			{RunID: "run_20260824_120000_ffff0000", Status: "failed"},
		},
		responses: map[string][]repo.Response{
			"run_20260831_120000_abcd1234": {
				{
					ID: 1, RunID: "run_20260831_120000_abcd1234", QueryID: "q1",
					ModelID: "gpt-5-mini", ResponseText: "Try paintballevents.net.",
					TargetCited: true, SearchQuery: &searchQuery,
					CitedURLs: []string{"paintballevents.net"}, ResponseTimeMS: &elapsed,
				},
				{
					ID: 2, RunID: "run_20260831_120000_abcd1234", QueryID: "q2",
					ModelID: "gpt-5-mini", Error: &errText,
				},
			},
		},
		stats: []repo.CitationStat{
			{ModelID: "gpt-5-mini", Responses: 10, Cited: 4, CitationRate: 0.4},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Runs []repo.Run `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "run_20260831_120000_abcd1234", body.Runs[0].RunID)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs?limit=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetRun(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/run_20260831_120000_abcd1234")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var run repo.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 2, run.QueriesExecuted)
	assert.Equal(t, 1, run.ErrorsCount)
}

func TestGetRunNotFound(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/run_nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestListResponses(t *testing.T) {
	ts := newTestServer(t, seededRepo())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/run_20260831_120000_abcd1234/responses")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		RunID     string          `json:"run_id"`
		Responses []repo.Response `json:"responses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Responses, 2)
	assert.True(t, body.Responses[0].TargetCited)
	require.NotNil(t, body.Responses[1].Error)
	assert.Equal(t, "quota exhausted", *body.Responses[1].Error)
}

func TestCitationStatsCached(t *testing.T) {
	stub := seededRepo()
	ts := newTestServer(t, stub)

	for i := 0; i < 3; i++ {
		resp, err := ts.Client().Get(ts.URL + "/api/v1/stats/citations")
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var body struct {
			Stats []repo.CitationStat `json:"stats"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Len(t, body.Stats, 1)
		assert.Equal(t, 0.4, body.Stats[0].CitationRate)
	}

	assert.Equal(t, 1, stub.statCalls, "stats are served from cache after the first read")
}
