package scenestore

import (
	"context"
	"testing"
)

func seedQueryScenes(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	scenes := []SceneRecord{
		testRecord("cars", 0, []float32{1, 0, 0}),
		testRecord("cars", 1, []float32{0.9, 0.1, 0}),
		testRecord("beach", 0, []float32{0, 1, 0}),
		testRecord("night", 0, []float32{0, 0, 1}),
	}
	scenes[2].Metadata.SceneType = "establishing"
	scenes[3].Metadata.Mood = "somber"
	for _, scene := range scenes {
		if err := store.Upsert(ctx, scene); err != nil {
			t.Fatalf("seed upsert %s: %v", scene.SceneID, err)
		}
	}
}

func TestQueryRanksByCosineDistance(t *testing.T) {
	store := newTestStore(t)
	seedQueryScenes(t, store)

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 3, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Record.SceneID != "cars_scene_0000" {
		t.Fatalf("closest scene wrong: %s", results[0].Record.SceneID)
	}
	if results[1].Record.SceneID != "cars_scene_0001" {
		t.Fatalf("second scene wrong: %s", results[1].Record.SceneID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Fatalf("results not sorted by distance: %v", results)
		}
	}
}

func TestQueryTiesBreakBySceneID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	// Identical embeddings, so distances tie exactly.
	for _, video := range []string{"zeta", "alpha", "mid"} {
		if err := store.Upsert(ctx, testRecord(video, 0, []float32{1, 1})); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	results, err := store.Query(ctx, []float32{1, 1}, 3, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []string{"alpha_scene_0000", "mid_scene_0000", "zeta_scene_0000"}
	for i, expected := range want {
		if results[i].Record.SceneID != expected {
			t.Fatalf("tie order wrong at %d: got %s want %s", i, results[i].Record.SceneID, expected)
		}
	}
}

func TestQueryAppliesFilters(t *testing.T) {
	store := newTestStore(t)
	seedQueryScenes(t, store)
	ctx := context.Background()

	results, err := store.Query(ctx, []float32{1, 0, 0}, 10, map[string]any{"video_id": "beach"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].Record.VideoID != "beach" {
		t.Fatalf("filter not applied: %+v", results)
	}

	results, err = store.Query(ctx, []float32{1, 0, 0}, 10, map[string]any{
		"video_id":   "cars",
		"clip_index": 1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].Record.SceneID != "cars_scene_0001" {
		t.Fatalf("combined filters not applied: %+v", results)
	}
}

func TestQueryUnknownFilterKeyReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	seedQueryScenes(t, store)

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 10, map[string]any{"director": "anyone"})
	if err != nil {
		t.Fatalf("query with unknown filter key should not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for unknown filter key, got %d", len(results))
	}
}

func TestQueryRejectsBadArguments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Query(ctx, nil, 5, nil); err == nil {
		t.Fatal("expected error for empty query vector")
	}
	if _, err := store.Query(ctx, []float32{1}, 0, nil); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestQueryLimitTruncates(t *testing.T) {
	store := newTestStore(t)
	seedQueryScenes(t, store)

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(results))
	}
}
