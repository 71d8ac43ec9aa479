package scenestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"takeone/internal/config"
	"takeone/internal/logging"
)

// Store manages scene persistence backed by SQLite.
type Store struct {
	// mu serializes archive/restore against all other store operations.
	// Reads and writes take it shared; archive and restore take it exclusive.
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	archiveDir string
	logger     *slog.Logger
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
    scene_id TEXT PRIMARY KEY,
    video_id TEXT NOT NULL,
    embedding BLOB NOT NULL,
    search_text TEXT NOT NULL,
    clip_path TEXT NOT NULL DEFAULT '',
    thumbnail_path TEXT NOT NULL DEFAULT '',
    start_time REAL NOT NULL DEFAULT 0,
    end_time REAL NOT NULL DEFAULT 0,
    duration REAL NOT NULL DEFAULT 0,
    clip_index INTEGER NOT NULL DEFAULT 0,
    scene_type TEXT NOT NULL DEFAULT '',
    mood TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenes_video_id ON scenes(video_id);
`

const sceneColumns = `scene_id, video_id, embedding, search_text, clip_path, thumbnail_path,
    start_time, end_time, duration, clip_index, scene_type, mood, description, tags`

// Open initializes or connects to the scene database in the configured index
// directory and applies the schema.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return openAt(filepath.Join(cfg.Paths.IndexDir, "scenes.db"), cfg.Paths.ArchiveDir, logger)
}

func openAt(dbPath, archiveDir string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:         db,
		path:       dbPath,
		archiveDir: archiveDir,
		logger:     logging.NewComponentLogger(logger, "scenestore"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the live database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s read-only: %w", path, err)
	}
	return db, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Upsert inserts a scene record, replacing any existing record with the same
// scene_id. Re-indexing a scene therefore never duplicates it.
func (s *Store) Upsert(ctx context.Context, record SceneRecord) error {
	if strings.TrimSpace(record.SceneID) == "" {
		return errors.New("upsert: scene_id required")
	}
	if strings.TrimSpace(record.VideoID) == "" {
		return errors.New("upsert: video_id required")
	}
	if len(record.Embedding) == 0 {
		return errors.New("upsert: embedding required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
        INSERT INTO scenes (
            scene_id, video_id, embedding, search_text, clip_path, thumbnail_path,
            start_time, end_time, duration, clip_index, scene_type, mood,
            description, tags, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(scene_id) DO UPDATE SET
            video_id = excluded.video_id,
            embedding = excluded.embedding,
            search_text = excluded.search_text,
            clip_path = excluded.clip_path,
            thumbnail_path = excluded.thumbnail_path,
            start_time = excluded.start_time,
            end_time = excluded.end_time,
            duration = excluded.duration,
            clip_index = excluded.clip_index,
            scene_type = excluded.scene_type,
            mood = excluded.mood,
            description = excluded.description,
            tags = excluded.tags`,
		record.SceneID,
		record.VideoID,
		encodeVector(record.Embedding),
		record.SearchText,
		record.Metadata.ClipPath,
		record.Metadata.ThumbnailPath,
		record.Metadata.StartTime,
		record.Metadata.EndTime,
		record.Metadata.Duration,
		record.Metadata.ClipIndex,
		record.Metadata.SceneType,
		record.Metadata.Mood,
		record.Metadata.Description,
		record.Metadata.Tags,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert scene %s: %w", record.SceneID, err)
	}
	return nil
}

// Get fetches a scene by identifier. A missing scene returns (nil, nil).
func (s *Store) Get(ctx context.Context, sceneID string) (*SceneRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+sceneColumns+` FROM scenes WHERE scene_id = ?`, sceneID)
	record, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene %s: %w", sceneID, err)
	}
	return record, nil
}

// DeleteVideo removes every scene belonging to a video and reports how many
// records were deleted.
func (s *Store) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.execWithRetry(ctx, `DELETE FROM scenes WHERE video_id = ?`, videoID)
	if err != nil {
		return 0, fmt.Errorf("delete video %s: %w", videoID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete video %s: rows affected: %w", videoID, err)
	}
	return int(affected), nil
}

// Count returns the number of indexed scenes.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(ctx)
}

func (s *Store) countLocked(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(*) FROM scenes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scenes: %w", err)
	}
	return count, nil
}

// Stats returns the total scene count and number of distinct videos.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(*), COUNT(DISTINCT video_id) FROM scenes`)
	if err := row.Scan(&stats.TotalScenes, &stats.UniqueVideos); err != nil {
		return Stats{}, fmt.Errorf("store stats: %w", err)
	}
	return stats, nil
}

// All enumerates every scene record. Rows with undecodable embeddings are
// skipped and logged rather than failing the enumeration.
func (s *Store) All(ctx context.Context) ([]SceneRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+sceneColumns+` FROM scenes ORDER BY scene_id`)
	if err != nil {
		return nil, fmt.Errorf("enumerate scenes: %w", err)
	}
	defer rows.Close()

	var records []SceneRecord
	for rows.Next() {
		record, err := scanScene(rows)
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping malformed scene row", "scene_row_malformed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "record omitted from enumeration"),
			)
			continue
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enumerate scenes: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*SceneRecord, error) {
	var (
		record SceneRecord
		blob   []byte
	)
	if err := row.Scan(
		&record.SceneID,
		&record.VideoID,
		&blob,
		&record.SearchText,
		&record.Metadata.ClipPath,
		&record.Metadata.ThumbnailPath,
		&record.Metadata.StartTime,
		&record.Metadata.EndTime,
		&record.Metadata.Duration,
		&record.Metadata.ClipIndex,
		&record.Metadata.SceneType,
		&record.Metadata.Mood,
		&record.Metadata.Description,
		&record.Metadata.Tags,
	); err != nil {
		return nil, err
	}
	vector, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", record.SceneID, err)
	}
	record.Embedding = vector
	return &record, nil
}
