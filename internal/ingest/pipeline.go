package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"takeone/internal/analysis"
	"takeone/internal/logging"
	"takeone/internal/scenestore"
	"takeone/internal/services"
)

// Scene is one detected time range of a video.
type Scene struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the scene length in seconds.
func (s Scene) Duration() float64 {
	return s.End - s.Start
}

// SceneDetector finds scene boundaries in a video file.
type SceneDetector interface {
	DetectScenes(ctx context.Context, videoPath string) ([]Scene, error)
}

// ClipExtractor cuts a clip and a representative thumbnail for a scene.
type ClipExtractor interface {
	ExtractClip(ctx context.Context, videoPath string, scene Scene, clipPath string) error
	ExtractThumbnail(ctx context.Context, videoPath string, scene Scene, thumbnailPath string) error
}

// Analyzer turns a scene thumbnail into a structured description.
type Analyzer interface {
	Analyze(ctx context.Context, thumbnailPath string, scene Scene) (*analysis.SceneAnalysis, error)
}

// Embedder produces the scene embedding from search text.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Upserter is the slice of the scene store the pipeline writes to.
type Upserter interface {
	Upsert(ctx context.Context, record scenestore.SceneRecord) error
}

// Report summarizes one indexing run.
type Report struct {
	RunID          string    `json:"run_id"`
	VideoID        string    `json:"video_id"`
	VideoPath      string    `json:"video_path"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ScenesDetected int       `json:"scenes_detected"`
	ScenesIndexed  int       `json:"scenes_indexed"`
	ScenesFailed   int       `json:"scenes_failed"`
}

// Pipeline coordinates scene indexing for one video at a time.
type Pipeline struct {
	detector  SceneDetector
	extractor ClipExtractor
	analyzer  Analyzer
	embedder  Embedder
	store     Upserter

	clipsDir      string
	thumbnailsDir string
	workers       int
	logger        *slog.Logger
}

// NewPipeline wires an indexing pipeline. workers bounds concurrent scene
// analysis and must be >= 1.
func NewPipeline(detector SceneDetector, extractor ClipExtractor, analyzer Analyzer, embedder Embedder, store Upserter, clipsDir, thumbnailsDir string, workers int, logger *slog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		detector:      detector,
		extractor:     extractor,
		analyzer:      analyzer,
		embedder:      embedder,
		store:         store,
		clipsDir:      clipsDir,
		thumbnailsDir: thumbnailsDir,
		workers:       workers,
		logger:        logging.NewComponentLogger(logger, "ingest"),
	}
}

// ProcessVideo indexes every detected scene of a video. Individual scene
// failures are logged and skipped; the report carries indexed and failed
// counts. A manifest JSON describing the run is written next to the clips.
func (p *Pipeline) ProcessVideo(ctx context.Context, videoPath, videoID string) (*Report, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "process", "video_id must not be empty", nil)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "process", "video file not readable", err)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		VideoID:   videoID,
		VideoPath: videoPath,
		StartedAt: time.Now().UTC(),
	}
	runLogger := p.logger.With(
		logging.String("run_id", report.RunID),
		logging.String(logging.FieldVideoID, videoID),
	)

	scenes, err := p.detector.DetectScenes(ctx, videoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ingest", "detect", "scene detection failed", err)
	}
	report.ScenesDetected = len(scenes)
	runLogger.Info("scenes detected", logging.Int("scene_count", len(scenes)))

	for _, dir := range []string{p.clipsDir, p.thumbnailsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sem     = make(chan struct{}, p.workers)
		indexed int
		failed  int
	)
	for _, scene := range scenes {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(scene Scene) {
			defer wg.Done()
			defer func() { <-sem }()
			err := p.processScene(ctx, videoPath, videoID, scene, runLogger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logging.WarnWithContext(runLogger, "scene skipped", "scene_failed",
					logging.Error(err),
					logging.String(logging.FieldSceneID, scenestore.SceneID(videoID, scene.Index)),
					logging.String(logging.FieldImpact, "scene not indexed"),
				)
				return
			}
			indexed++
		}(scene)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.ScenesIndexed = indexed
	report.ScenesFailed = failed
	report.FinishedAt = time.Now().UTC()

	if err := p.writeManifest(report); err != nil {
		logging.WarnWithContext(runLogger, "manifest not written", "manifest_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run metadata unavailable on disk"),
		)
	}

	runLogger.Info("video indexed",
		logging.Int("scenes_indexed", indexed),
		logging.Int("scenes_failed", failed),
	)
	return report, nil
}

func (p *Pipeline) processScene(ctx context.Context, videoPath, videoID string, scene Scene, logger *slog.Logger) error {
	sceneID := scenestore.SceneID(videoID, scene.Index)
	clipPath := filepath.Join(p.clipsDir, sceneID+".mp4")
	thumbnailPath := filepath.Join(p.thumbnailsDir, sceneID+".jpg")

	if err := p.extractor.ExtractClip(ctx, videoPath, scene, clipPath); err != nil {
		return fmt.Errorf("extract clip: %w", err)
	}
	if err := p.extractor.ExtractThumbnail(ctx, videoPath, scene, thumbnailPath); err != nil {
		return fmt.Errorf("extract thumbnail: %w", err)
	}

	sceneAnalysis, err := p.analyzer.Analyze(ctx, thumbnailPath, scene)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	searchText := analysis.BuildSearchText(*sceneAnalysis)
	if strings.TrimSpace(searchText) == "" {
		return fmt.Errorf("analysis produced no searchable text")
	}

	vector, err := p.embedder.EmbedOne(ctx, searchText)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	record := scenestore.SceneRecord{
		SceneID:    sceneID,
		VideoID:    videoID,
		Embedding:  vector,
		SearchText: searchText,
		Metadata: scenestore.Metadata{
			ClipPath:      clipPath,
			ThumbnailPath: thumbnailPath,
			StartTime:     scene.Start,
			EndTime:       scene.End,
			Duration:      scene.Duration(),
			ClipIndex:     scene.Index,
			SceneType:     sceneAnalysis.SceneType,
			Mood:          sceneAnalysis.Mood,
			Description:   scenestore.TruncateDescription(sceneAnalysis.Description),
			Tags:          analysis.FlattenTags(sceneAnalysis.Tags),
		},
	}
	if err := p.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	logger.Debug("scene indexed", logging.String(logging.FieldSceneID, sceneID))
	return nil
}

func (p *Pipeline) writeManifest(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_run_%s.json", report.VideoID, report.RunID)
	return os.WriteFile(filepath.Join(p.clipsDir, name), data, 0o644)
}
