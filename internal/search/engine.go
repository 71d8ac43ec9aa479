package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"takeone/internal/logging"
	"takeone/internal/scenestore"
	"takeone/internal/services"
)

// SceneStore is the slice of the scene store the engine depends on.
type SceneStore interface {
	Query(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]scenestore.QueryResult, error)
	ArchiveAndReset(ctx context.Context) (scenestore.ArchiveInfo, error)
	Restore(ctx context.Context, archivePath string) (scenestore.ArchiveInfo, error)
	ListArchives(ctx context.Context) ([]scenestore.ArchiveInfo, error)
	DeleteVideo(ctx context.Context, videoID string) (int, error)
	Stats(ctx context.Context) (scenestore.Stats, error)
}

// Embedder produces the query embedding.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Options control a single search.
type Options struct {
	// TopK is the maximum number of matches to return. Zero means the
	// configured default.
	TopK int
	// Filters are exact-match metadata constraints applied to every variant.
	Filters map[string]any
	// UseExpansion enables query expansion fan-out.
	UseExpansion bool
}

// Engine runs expanded vector searches against the scene store.
type Engine struct {
	store           SceneStore
	embedder        Embedder
	expander        *Expander
	defaultTopK     int
	overfetchFactor int
	logger          *slog.Logger
}

// NewEngine wires a search engine. defaultTopK and overfetchFactor come from
// configuration and must both be >= 1.
func NewEngine(store SceneStore, embedder Embedder, expander *Expander, defaultTopK, overfetchFactor int, logger *slog.Logger) *Engine {
	if defaultTopK < 1 {
		defaultTopK = 1
	}
	if overfetchFactor < 1 {
		overfetchFactor = 1
	}
	return &Engine{
		store:           store,
		embedder:        embedder,
		expander:        expander,
		defaultTopK:     defaultTopK,
		overfetchFactor: overfetchFactor,
		logger:          logging.NewComponentLogger(logger, "search"),
	}
}

// Search runs the full pipeline: validate, expand, embed and query each
// variant with over-fetch, merge keeping the best score per scene, rank, and
// truncate to TopK.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]SceneMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "search", "query must not be empty", nil)
	}
	topK := opts.TopK
	if topK == 0 {
		topK = e.defaultTopK
	}
	if topK < 1 {
		return nil, services.Wrap(services.ErrValidation, "search", "search", "top_k must be at least 1", nil)
	}

	variants := []string{query}
	if opts.UseExpansion {
		variants = e.expander.Expand(ctx, query)
	}

	// Over-fetch per variant so the cross-variant merge still has topK
	// distinct scenes to choose from after deduplication.
	fetch := topK * e.overfetchFactor
	best := make(map[string]SceneMatch)
	embedded := 0
	for _, variant := range variants {
		vector, err := e.embedder.EmbedOne(ctx, variant)
		if err != nil {
			logging.WarnWithContext(e.logger, "variant embedding failed", "embedding_failed",
				logging.Error(err),
				logging.String(logging.FieldQuery, variant),
				logging.String(logging.FieldImpact, "variant skipped"),
			)
			continue
		}
		embedded++

		results, err := e.store.Query(ctx, vector, fetch, opts.Filters)
		if err != nil {
			return nil, services.Wrap(services.ErrUnavailable, "search", "query", "scene store query failed", err)
		}
		for _, result := range results {
			match := matchFromResult(result)
			if current, ok := best[match.SceneID]; !ok || match.Score > current.Score {
				best[match.SceneID] = match
			}
		}
	}
	if embedded == 0 {
		return nil, services.Wrap(services.ErrUnavailable, "search", "embed", "no query variant could be embedded", nil)
	}

	merged := make([]SceneMatch, 0, len(best))
	for _, match := range best {
		merged = append(merged, match)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].SceneID < merged[j].SceneID
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}

	e.logger.Debug("search complete",
		logging.String(logging.FieldQuery, query),
		logging.Int(logging.FieldVariants, len(variants)),
		logging.Int(logging.FieldMatches, len(merged)),
	)
	return merged, nil
}

// ArchiveAndReset snapshots the live index and clears it, returning the
// archive path.
func (e *Engine) ArchiveAndReset(ctx context.Context) (string, error) {
	info, err := e.store.ArchiveAndReset(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "search", "archive", "archive and reset failed", err)
	}
	return info.Path, nil
}

// Restore loads an archived snapshot into the live index, archiving the
// current contents first. It reports success rather than returning an error:
// a missing or unreadable archive is an expected operator mistake.
func (e *Engine) Restore(ctx context.Context, archivePath string) bool {
	if _, err := e.store.Restore(ctx, archivePath); err != nil {
		logging.WarnWithContext(e.logger, "restore failed", "restore_failed",
			logging.Error(err),
			logging.String(logging.FieldArchive, archivePath),
			logging.String(logging.FieldImpact, "live index unchanged"),
		)
		return false
	}
	return true
}

// ListArchives enumerates archived snapshots, newest first.
func (e *Engine) ListArchives(ctx context.Context) ([]scenestore.ArchiveInfo, error) {
	return e.store.ListArchives(ctx)
}

// DeleteVideo removes every scene of a video and reports how many were
// deleted.
func (e *Engine) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return 0, services.Wrap(services.ErrValidation, "search", "delete-video", "video_id must not be empty", nil)
	}
	return e.store.DeleteVideo(ctx, videoID)
}

// Stats reports live index totals.
func (e *Engine) Stats(ctx context.Context) (scenestore.Stats, error) {
	return e.store.Stats(ctx)
}
