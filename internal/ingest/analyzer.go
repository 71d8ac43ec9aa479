package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"takeone/internal/analysis"
	"takeone/internal/services/llm"
)

// VisionCompleter is the slice of the LLM client the analyzer needs.
type VisionCompleter interface {
	Available() bool
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt, imageURL string) (string, error)
}

const analyzeSystemPrompt = `You describe video stills for a footage search index. Respond with a JSON object containing any of these fields that apply: description, detailed_description, scene_type, mood, secondary_moods (array), entities ({people, locations, objects, vehicles, text_visible} arrays), setting ({location, time_of_day}), people (array of {description, clothing, action, expression}), actions (array), interactions (array), lighting, camera, colors (array), keywords (array), tags (array). Be concrete and visual; omit fields you cannot determine.`

// VisionAnalyzer implements Analyzer with a vision-language model call on the
// scene thumbnail.
type VisionAnalyzer struct {
	completer VisionCompleter
}

// NewVisionAnalyzer builds a model-backed scene analyzer.
func NewVisionAnalyzer(completer VisionCompleter) *VisionAnalyzer {
	return &VisionAnalyzer{completer: completer}
}

// Analyze sends the thumbnail to the vision model and decodes the structured
// description.
func (a *VisionAnalyzer) Analyze(ctx context.Context, thumbnailPath string, scene Scene) (*analysis.SceneAnalysis, error) {
	if a.completer == nil || !a.completer.Available() {
		return nil, fmt.Errorf("analyze: vision model not configured")
	}
	data, err := os.ReadFile(thumbnailPath)
	if err != nil {
		return nil, fmt.Errorf("analyze: read thumbnail: %w", err)
	}

	userPrompt := fmt.Sprintf(
		"Describe this video frame. It represents a scene running from %.1fs to %.1fs.",
		scene.Start, scene.End)
	content, err := a.completer.CompleteVisionJSON(ctx, analyzeSystemPrompt, userPrompt,
		llm.ImageDataURL(imageMIMEType(thumbnailPath), data))
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var result analysis.SceneAnalysis
	if err := llm.DecodeJSON(content, &result); err != nil {
		return nil, fmt.Errorf("analyze: decode response: %w", err)
	}
	return &result, nil
}

func imageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
