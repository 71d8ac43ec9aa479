package search

import (
	"context"
	"errors"
	"testing"

	"takeone/internal/logging"
	"takeone/internal/scenestore"
	"takeone/internal/services"
)

type fakeStore struct {
	results    map[string][]scenestore.QueryResult // keyed by variant text via embedder
	queryErr   error
	lastLimit  int
	queryCalls int

	archiveInfo scenestore.ArchiveInfo
	archiveErr  error
	restoreErr  error
	deleted     int
	stats       scenestore.Stats
}

func (f *fakeStore) Query(_ context.Context, vector []float32, limit int, _ map[string]any) ([]scenestore.QueryResult, error) {
	f.queryCalls++
	f.lastLimit = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	key := vectorKey(vector)
	return f.results[key], nil
}

func (f *fakeStore) ArchiveAndReset(context.Context) (scenestore.ArchiveInfo, error) {
	return f.archiveInfo, f.archiveErr
}

func (f *fakeStore) Restore(context.Context, string) (scenestore.ArchiveInfo, error) {
	return scenestore.ArchiveInfo{}, f.restoreErr
}

func (f *fakeStore) ListArchives(context.Context) ([]scenestore.ArchiveInfo, error) {
	return nil, nil
}

func (f *fakeStore) DeleteVideo(context.Context, string) (int, error) {
	return f.deleted, nil
}

func (f *fakeStore) Stats(context.Context) (scenestore.Stats, error) {
	return f.stats, nil
}

// vectorKey maps the fake embedder's one-hot vectors back to variant labels.
func vectorKey(vector []float32) string {
	for i, v := range vector {
		if v != 0 {
			return string(rune('a' + i))
		}
	}
	return ""
}

type fakeEmbedder struct {
	// index assigns each known text a one-hot dimension.
	index map[string]int
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vector := make([]float32, 8)
	if i, ok := f.index[text]; ok {
		vector[i] = 1
	}
	return vector, nil
}

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Available() bool { return true }

func (f *fakeCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	f.calls++
	return f.response, f.err
}

func queryResult(sceneID, videoID string, distance float64) scenestore.QueryResult {
	return scenestore.QueryResult{
		Record: scenestore.SceneRecord{
			SceneID: sceneID,
			VideoID: videoID,
			Metadata: scenestore.Metadata{
				Tags: "day,exterior",
			},
		},
		Distance: distance,
	}
}

func newTestEngine(store *fakeStore, embedder *fakeEmbedder, completer Completer) *Engine {
	expander := NewExpander(completer, 12, logging.NewNop())
	return NewEngine(store, embedder, expander, 10, 3, logging.NewNop())
}

func TestSearchValidatesBeforeExternalCalls(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	if _, err := engine.Search(context.Background(), "   ", Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
	if _, err := engine.Search(context.Background(), "cars", Options{TopK: -1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for negative top_k, got %v", err)
	}
	if embedder.calls != 0 || store.queryCalls != 0 {
		t.Fatalf("validation must precede external calls: embed=%d query=%d", embedder.calls, store.queryCalls)
	}
}

func TestSearchWithoutExpansionUsesSingleVariant(t *testing.T) {
	store := &fakeStore{results: map[string][]scenestore.QueryResult{
		"a": {queryResult("vid_scene_0000", "vid", 0.2)},
	}}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	completer := &fakeCompleter{response: `{"variants": ["fast vehicles"]}`}
	engine := newTestEngine(store, embedder, completer)

	matches, err := engine.Search(context.Background(), "cars", Options{TopK: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if completer.calls != 0 {
		t.Fatal("expansion model must not be called when expansion is off")
	}
	if embedder.calls != 1 || store.queryCalls != 1 {
		t.Fatalf("expected one variant, got embed=%d query=%d", embedder.calls, store.queryCalls)
	}
	if len(matches) != 1 || matches[0].SceneID != "vid_scene_0000" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestSearchOverfetchesPerVariant(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	if _, err := engine.Search(context.Background(), "cars", Options{TopK: 4}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.lastLimit != 12 {
		t.Fatalf("expected over-fetch limit 12 (top_k 4 * factor 3), got %d", store.lastLimit)
	}
}

func TestSearchMergesKeepingBestScore(t *testing.T) {
	// The same scene appears in both variants with different distances; the
	// merge must keep the closer occurrence.
	store := &fakeStore{results: map[string][]scenestore.QueryResult{
		"a": {
			queryResult("vid_scene_0000", "vid", 0.4),
			queryResult("vid_scene_0001", "vid", 0.5),
		},
		"b": {
			queryResult("vid_scene_0000", "vid", 0.1),
		},
	}}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0, "fast vehicles": 1}}
	completer := &fakeCompleter{response: `{"variants": ["fast vehicles"]}`}
	engine := newTestEngine(store, embedder, completer)

	matches, err := engine.Search(context.Background(), "cars", Options{TopK: 10, UseExpansion: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 deduped matches, got %d", len(matches))
	}
	if matches[0].SceneID != "vid_scene_0000" {
		t.Fatalf("best match wrong: %s", matches[0].SceneID)
	}
	if got := matches[0].Score; got < 0.89 || got > 0.91 {
		t.Fatalf("merge did not keep best score: %v", got)
	}
}

func TestSearchTieBreaksBySceneID(t *testing.T) {
	store := &fakeStore{results: map[string][]scenestore.QueryResult{
		"a": {
			queryResult("zeta_scene_0000", "zeta", 0.3),
			queryResult("alpha_scene_0000", "alpha", 0.3),
		},
	}}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	matches, err := engine.Search(context.Background(), "cars", Options{TopK: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if matches[0].SceneID != "alpha_scene_0000" || matches[1].SceneID != "zeta_scene_0000" {
		t.Fatalf("tie-break order wrong: %s, %s", matches[0].SceneID, matches[1].SceneID)
	}
}

func TestSearchExpansionFailureDegradesToOriginal(t *testing.T) {
	store := &fakeStore{results: map[string][]scenestore.QueryResult{
		"a": {queryResult("vid_scene_0000", "vid", 0.2)},
	}}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	completer := &fakeCompleter{err: errors.New("model offline")}
	engine := newTestEngine(store, embedder, completer)

	matches, err := engine.Search(context.Background(), "cars", Options{TopK: 5, UseExpansion: true})
	if err != nil {
		t.Fatalf("expansion failure must not fail the search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected original-query results, got %d matches", len(matches))
	}
	if embedder.calls != 1 {
		t.Fatalf("expected single fallback variant, embedder called %d times", embedder.calls)
	}
}

func TestSearchStoreErrorIsUnavailable(t *testing.T) {
	store := &fakeStore{queryErr: errors.New("disk gone")}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	if _, err := engine.Search(context.Background(), "cars", Options{TopK: 5}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestSearchAllEmbeddingsFailingIsUnavailable(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: errors.New("embedding api down")}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	if _, err := engine.Search(context.Background(), "cars", Options{TopK: 5}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	store := &fakeStore{results: map[string][]scenestore.QueryResult{
		"a": {
			queryResult("a_scene_0000", "a", 0.1),
			queryResult("b_scene_0000", "b", 0.2),
			queryResult("c_scene_0000", "c", 0.3),
		},
	}}
	embedder := &fakeEmbedder{index: map[string]int{"cars": 0}}
	engine := newTestEngine(store, embedder, &fakeCompleter{})

	matches, err := engine.Search(context.Background(), "cars", Options{TopK: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected top_k to cap results at 2, got %d", len(matches))
	}
}

func TestRestoreReportsFailureAsFalse(t *testing.T) {
	store := &fakeStore{restoreErr: errors.New("no such archive")}
	engine := newTestEngine(store, &fakeEmbedder{}, &fakeCompleter{})

	if engine.Restore(context.Background(), "/missing.db") {
		t.Fatal("expected restore to report false on failure")
	}
	store.restoreErr = nil
	if !engine.Restore(context.Background(), "/present.db") {
		t.Fatal("expected restore to report true on success")
	}
}

func TestDeleteVideoValidatesID(t *testing.T) {
	engine := newTestEngine(&fakeStore{}, &fakeEmbedder{}, &fakeCompleter{})
	if _, err := engine.DeleteVideo(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMatchFromResultSplitsTags(t *testing.T) {
	match := matchFromResult(queryResult("vid_scene_0000", "vid", 0.25))
	if len(match.Tags) != 2 || match.Tags[0] != "day" || match.Tags[1] != "exterior" {
		t.Fatalf("tags not split: %v", match.Tags)
	}
	if match.Score != 0.75 {
		t.Fatalf("score wrong: %v", match.Score)
	}
}
