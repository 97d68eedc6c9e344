package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"citation-monitor/internal/repo"
)

// Loader reads the query catalog from its JSON file and keeps the database
// copy in sync with it.
type Loader struct {
	repo repo.Repository
}

func NewLoader(r repo.Repository) *Loader {
	return &Loader{repo: r}
}

// fileQuery mirrors one catalog entry on disk. Priority and Active are
// pointers so that omitted fields fall back to the catalog defaults
// (priority 1, active true) instead of Go zero values.
type fileQuery struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Category *string `json:"category"`
	Priority *int    `json:"priority"`
	Active   *bool   `json:"active"`
}

type catalogFile struct {
	Queries []fileQuery `json:"queries"`
}

// LoadQueries parses the catalog at path and returns all entries, active or
// not. A missing file or malformed catalog is a configuration error the
// caller treats as fatal.
func (l *Loader) LoadQueries(path string) ([]repo.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid query catalog %s: %w", path, err)
	}

	queries := make([]repo.Query, 0, len(file.Queries))
	for i, fq := range file.Queries {
		if fq.ID == "" || fq.Text == "" {
			return nil, fmt.Errorf("query catalog %s: entry %d is missing id or text", path, i)
		}

		q := repo.Query{
			ID:       fq.ID,
			Text:     fq.Text,
			Category: fq.Category,
			Priority: 1,
			Active:   true,
		}
		if fq.Priority != nil {
			q.Priority = *fq.Priority
		}
		if fq.Active != nil {
			q.Active = *fq.Active
		}
		queries = append(queries, q)
	}

	return queries, nil
}

// Sync upserts the full catalog (including inactive entries) into the
// database, keyed by query id.
func (l *Loader) Sync(ctx context.Context, queries []repo.Query) error {
	if err := l.repo.SyncQueries(ctx, queries); err != nil {
		return err
	}
	log.Info().Int("count", len(queries)).Msg("Synced query catalog to database")
	return nil
}

// ActiveQueries filters the catalog down to the entries included in a run,
// preserving catalog order.
func ActiveQueries(queries []repo.Query) []repo.Query {
	active := make([]repo.Query, 0, len(queries))
	for _, q := range queries {
		if q.Active {
			active = append(active, q)
		}
	}
	return active
}
