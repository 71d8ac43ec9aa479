package search

import (
	"takeone/internal/analysis"
	"takeone/internal/scenestore"
)

// SceneMatch is one ranked search hit. Score is cosine similarity in [0, 1]
// for normalized embeddings; higher is better.
type SceneMatch struct {
	SceneID       string   `json:"scene_id"`
	VideoID       string   `json:"video_id"`
	Score         float64  `json:"score"`
	ClipPath      string   `json:"clip_path,omitempty"`
	ThumbnailPath string   `json:"thumbnail_path,omitempty"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Duration      float64  `json:"duration"`
	ClipIndex     int      `json:"clip_index"`
	SceneType     string   `json:"scene_type,omitempty"`
	Mood          string   `json:"mood,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags"`
}

func matchFromResult(result scenestore.QueryResult) SceneMatch {
	meta := result.Record.Metadata
	return SceneMatch{
		SceneID:       result.Record.SceneID,
		VideoID:       result.Record.VideoID,
		Score:         1 - result.Distance,
		ClipPath:      meta.ClipPath,
		ThumbnailPath: meta.ThumbnailPath,
		StartTime:     meta.StartTime,
		EndTime:       meta.EndTime,
		Duration:      meta.Duration,
		ClipIndex:     meta.ClipIndex,
		SceneType:     meta.SceneType,
		Mood:          meta.Mood,
		Description:   meta.Description,
		Tags:          analysis.SplitTags(meta.Tags),
	}
}
