package scenestore

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Metadata carries the scalar fields stored alongside a scene embedding.
// No nested structures: the schema only accepts primitive columns.
type Metadata struct {
	ClipPath      string  `json:"clip_path"`
	ThumbnailPath string  `json:"thumbnail_path"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Duration      float64 `json:"duration"`
	ClipIndex     int     `json:"clip_index"`
	SceneType     string  `json:"scene_type"`
	Mood          string  `json:"mood"`
	Description   string  `json:"description"`
	Tags          string  `json:"tags"`
}

// SceneRecord is one indexed unit of footage.
type SceneRecord struct {
	SceneID    string    `json:"scene_id"`
	VideoID    string    `json:"video_id"`
	Embedding  []float32 `json:"-"`
	SearchText string    `json:"search_text"`
	Metadata   Metadata  `json:"metadata"`
}

// QueryResult pairs a record with its cosine distance from the query vector.
type QueryResult struct {
	Record   SceneRecord
	Distance float64
}

// Stats summarizes the live store contents.
type Stats struct {
	TotalScenes  int `json:"total_scenes"`
	UniqueVideos int `json:"unique_videos"`
}

// ArchiveInfo describes one archived snapshot of the store.
type ArchiveInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
	SceneCount int       `json:"scene_count"`
}

// SceneID renders the canonical scene identifier for a clip of a video.
func SceneID(videoID string, clipIndex int) string {
	return fmt.Sprintf("%s_scene_%04d", videoID, clipIndex)
}

// descriptionLimit caps the truncated description copy kept in metadata. The
// full text lives in search_text.
const descriptionLimit = 500

// TruncateDescription trims a description to the metadata column budget.
func TruncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= descriptionLimit {
		return description
	}
	return string(runes[:descriptionLimit])
}

// encodeVector packs a float32 vector as little-endian bytes for BLOB storage.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a BLOB back into a float32 vector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

// cosineDistance returns 1 - cosine similarity between two vectors. Vectors
// of mismatched length or zero magnitude are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
