package cache

// Key builders for the dashboard's cached aggregates. Kept in one place so
// invalidation and population can't drift apart.

func CitationStatsKey() string {
	return "stats:citations"
}

func RunSummaryKey(runID string) string {
	return "run:summary:" + runID
}

func RecentRunsKey() string {
	return "runs:recent"
}
