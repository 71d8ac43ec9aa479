package testsupport

import (
	"context"
	"testing"

	"takeone/internal/config"
	"takeone/internal/logging"
	"takeone/internal/scenestore"
)

// MustOpenStore opens a scenestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *scenestore.Store {
	t.Helper()

	store, err := scenestore.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("scenestore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedScene upserts a minimal scene record for tests.
func SeedScene(t testing.TB, store *scenestore.Store, videoID string, clipIndex int, embedding []float32, searchText string) scenestore.SceneRecord {
	t.Helper()

	record := scenestore.SceneRecord{
		SceneID:    scenestore.SceneID(videoID, clipIndex),
		VideoID:    videoID,
		Embedding:  embedding,
		SearchText: searchText,
		Metadata: scenestore.Metadata{
			ClipIndex:   clipIndex,
			Description: searchText,
		},
	}
	if err := store.Upsert(context.Background(), record); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return record
}
