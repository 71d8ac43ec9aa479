package scenestore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"takeone/internal/logging"
)

// filterColumns whitelists the metadata columns a query may filter on.
// Filtering on anything else matches nothing rather than erroring, so a
// caller probing with an unknown key gets an empty result set.
var filterColumns = map[string]struct{}{
	"video_id":   {},
	"scene_type": {},
	"mood":       {},
	"clip_index": {},
}

// Query ranks scenes by cosine distance to the query vector and returns the
// closest limit records. Filters are exact-match constraints on whitelisted
// metadata columns.
func (s *Store) Query(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]QueryResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query: embedding required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("query: limit must be positive, got %d", limit)
	}

	for key := range filters {
		if _, ok := filterColumns[key]; !ok {
			s.logger.Debug("query filter key not filterable, returning no results",
				logging.String("filter_key", key))
			return []QueryResult{}, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + sceneColumns + ` FROM scenes`
	var (
		clauses []string
		args    []any
	)
	for _, key := range sortedFilterKeys(filters) {
		clauses = append(clauses, key+" = ?")
		args = append(args, filters[key])
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		record, err := scanScene(rows)
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping malformed scene row", "scene_row_malformed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "record omitted from query results"),
			)
			continue
		}
		results = append(results, QueryResult{
			Record:   *record,
			Distance: cosineDistance(vector, record.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Record.SceneID < results[j].Record.SceneID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func sortedFilterKeys(filters map[string]any) []string {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
