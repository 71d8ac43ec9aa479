package scenestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"takeone/internal/logging"
)

const (
	archivePrefix        = "scenes_archive_"
	archiveSuffix        = ".db"
	archiveTimestampForm = "20060102_150405"
	maintenanceLockName  = "maintenance.lock"
)

func archiveName(at time.Time) string {
	return archivePrefix + at.Format(archiveTimestampForm) + archiveSuffix
}

// lockMaintenance acquires the cross-process maintenance lock. The in-process
// write lock on s.mu must already be held by the caller.
func (s *Store) lockMaintenance() (*flock.Flock, error) {
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	lock := flock.New(filepath.Join(s.archiveDir, maintenanceLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another archive or restore operation is in progress")
	}
	return lock, nil
}

// ArchiveAndReset snapshots the live database into the archive directory and
// then clears the live store. The live data is deleted only after the
// snapshot file is fully written.
func (s *Store) ArchiveAndReset(ctx context.Context) (ArchiveInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.lockMaintenance()
	if err != nil {
		return ArchiveInfo{}, err
	}
	defer func() { _ = lock.Unlock() }()

	count, err := s.countLocked(ctx)
	if err != nil {
		return ArchiveInfo{}, err
	}

	now := time.Now()
	info, err := s.snapshotLocked(ctx, now, count)
	if err != nil {
		return ArchiveInfo{}, err
	}

	if _, err := s.db.ExecContext(ensureContext(ctx), `DELETE FROM scenes`); err != nil {
		return ArchiveInfo{}, fmt.Errorf("reset store after archive: %w", err)
	}

	s.logger.Info("archived and reset scene store",
		logging.String(logging.FieldArchive, info.Name),
		logging.Int("scene_count", info.SceneCount),
	)
	return info, nil
}

// snapshotLocked writes a consistent copy of the live database to a new
// archive file. Caller holds the write lock.
func (s *Store) snapshotLocked(ctx context.Context, at time.Time, count int) (ArchiveInfo, error) {
	// Fold WAL contents into the main file so a plain copy is complete.
	if _, err := s.db.ExecContext(ensureContext(ctx), `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return ArchiveInfo{}, fmt.Errorf("checkpoint before archive: %w", err)
	}

	name := archiveName(at)
	dest := filepath.Join(s.archiveDir, name)
	if err := copyFile(s.path, dest); err != nil {
		return ArchiveInfo{}, fmt.Errorf("write archive %s: %w", name, err)
	}

	return ArchiveInfo{
		Name:       name,
		Path:       dest,
		Timestamp:  at.Truncate(time.Second),
		SceneCount: count,
	}, nil
}

// Restore replaces the live store contents with an archived snapshot. The
// current contents are archived first, so a restore never loses data. The
// returned ArchiveInfo describes that safety archive.
//
// The copy from the snapshot runs inside a single transaction: if it fails,
// the live store is left as it was.
func (s *Store) Restore(ctx context.Context, archivePath string) (ArchiveInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(archivePath); err != nil {
		return ArchiveInfo{}, fmt.Errorf("archive not readable: %w", err)
	}

	lock, err := s.lockMaintenance()
	if err != nil {
		return ArchiveInfo{}, err
	}
	defer func() { _ = lock.Unlock() }()

	count, err := s.countLocked(ctx)
	if err != nil {
		return ArchiveInfo{}, err
	}
	safety, err := s.snapshotLocked(ctx, time.Now(), count)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("archive current store before restore: %w", err)
	}

	ctx = ensureContext(ctx)
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("restore: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS restore_src`, archivePath); err != nil {
		return ArchiveInfo{}, fmt.Errorf("restore: attach %s: %w", archivePath, err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `DETACH DATABASE restore_src`)
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("restore: begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes`); err != nil {
		_ = tx.Rollback()
		return ArchiveInfo{}, fmt.Errorf("restore: clear live store: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO scenes SELECT * FROM restore_src.scenes`); err != nil {
		_ = tx.Rollback()
		return ArchiveInfo{}, fmt.Errorf("restore: copy archived scenes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ArchiveInfo{}, fmt.Errorf("restore: commit: %w", err)
	}

	s.logger.Info("restored scene store from archive",
		logging.String(logging.FieldArchive, filepath.Base(archivePath)),
		logging.String("safety_archive", safety.Name),
	)
	return safety, nil
}

// ListArchives enumerates archived snapshots, newest first.
func (s *Store) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(s.archiveDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var archives []ArchiveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		ts, err := time.ParseInLocation(archiveTimestampForm, stamp, time.Local)
		if err != nil {
			continue
		}
		path := filepath.Join(s.archiveDir, name)
		count, err := countArchiveScenes(ensureContext(ctx), path)
		if err != nil {
			logging.WarnWithContext(s.logger, "could not inspect archive", "archive_unreadable",
				logging.Error(err),
				logging.String(logging.FieldArchive, name),
				logging.String(logging.FieldImpact, "scene count reported as zero"),
			)
			count = 0
		}
		archives = append(archives, ArchiveInfo{
			Name:       name,
			Path:       path,
			Timestamp:  ts,
			SceneCount: count,
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})
	return archives, nil
}

func countArchiveScenes(ctx context.Context, path string) (int, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive scenes: %w", err)
	}
	return count, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
