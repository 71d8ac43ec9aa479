package ingest

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// FFmpegDetector finds scene boundaries with ffmpeg's scene-change filter.
type FFmpegDetector struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Threshold is the scene-change sensitivity on a 0-100 scale.
	Threshold       float64
	MinSceneSeconds float64
	MaxSceneSeconds float64
}

var ptsTimePattern = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// DetectScenes runs the scene-change filter and converts the detected cut
// points into contiguous scenes covering the whole video. Scenes shorter than
// MinSceneSeconds are merged into their predecessor; scenes longer than
// MaxSceneSeconds are split into equal parts.
func (d *FFmpegDetector) DetectScenes(ctx context.Context, videoPath string) ([]Scene, error) {
	duration, err := d.probeDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("detect scenes: video has no duration")
	}

	filter := fmt.Sprintf("select='gt(scene,%0.4f)',showinfo", d.Threshold/100)
	args := []string{
		"-hide_banner",
		"-i", videoPath,
		"-vf", filter,
		"-f", "null",
		"-",
	}
	cmd := commandContext(ctx, d.ffmpeg(), args...)
	// showinfo reports on stderr alongside ffmpeg's own output.
	output, _ := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cuts := parseCutPoints(string(output), duration)
	scenes := buildScenes(cuts, duration, d.MinSceneSeconds, d.MaxSceneSeconds)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("detect scenes: no usable scenes in %0.1fs video", duration)
	}
	return scenes, nil
}

func (d *FFmpegDetector) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	}
	output, err := commandContext(ctx, d.ffprobe(), args...).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: parse %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

func (d *FFmpegDetector) ffmpeg() string {
	if d.FFmpegBinary != "" {
		return d.FFmpegBinary
	}
	return "ffmpeg"
}

func (d *FFmpegDetector) ffprobe() string {
	if d.FFprobeBinary != "" {
		return d.FFprobeBinary
	}
	return "ffprobe"
}

func parseCutPoints(output string, duration float64) []float64 {
	var cuts []float64
	for _, match := range ptsTimePattern.FindAllStringSubmatch(output, -1) {
		t, err := strconv.ParseFloat(match[1], 64)
		if err != nil || t <= 0 || t >= duration {
			continue
		}
		cuts = append(cuts, t)
	}
	sort.Float64s(cuts)
	return cuts
}

// buildScenes converts cut points into scenes spanning [0, duration] and
// applies the length bounds.
func buildScenes(cuts []float64, duration, minSeconds, maxSeconds float64) []Scene {
	bounds := append([]float64{0}, cuts...)
	bounds = append(bounds, duration)

	var segments [][2]float64
	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		if end <= start {
			continue
		}
		if minSeconds > 0 && end-start < minSeconds && len(segments) > 0 {
			segments[len(segments)-1][1] = end
			continue
		}
		segments = append(segments, [2]float64{start, end})
	}
	// A leading short segment has no predecessor to merge into; fold it
	// forward instead.
	if minSeconds > 0 && len(segments) > 1 && segments[0][1]-segments[0][0] < minSeconds {
		segments[1][0] = segments[0][0]
		segments = segments[1:]
	}

	var scenes []Scene
	for _, segment := range segments {
		start, end := segment[0], segment[1]
		if maxSeconds > 0 && end-start > maxSeconds {
			parts := int(math.Ceil((end - start) / maxSeconds))
			step := (end - start) / float64(parts)
			for p := 0; p < parts; p++ {
				scenes = append(scenes, Scene{
					Index: len(scenes),
					Start: start + float64(p)*step,
					End:   start + float64(p+1)*step,
				})
			}
			continue
		}
		scenes = append(scenes, Scene{Index: len(scenes), Start: start, End: end})
	}
	return scenes
}

// FFmpegExtractor cuts scene clips and thumbnails with ffmpeg.
type FFmpegExtractor struct {
	FFmpegBinary string
}

func (e *FFmpegExtractor) ffmpeg() string {
	if e.FFmpegBinary != "" {
		return e.FFmpegBinary
	}
	return "ffmpeg"
}

// ExtractClip writes the scene's time range to clipPath.
func (e *FFmpegExtractor) ExtractClip(ctx context.Context, videoPath string, scene Scene, clipPath string) error {
	if scene.Duration() <= 0 {
		return fmt.Errorf("extract clip: invalid scene duration %0.3f", scene.Duration())
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(scene.Start),
		"-t", formatSeconds(scene.Duration()),
		"-i", videoPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		clipPath,
	}
	cmd := commandContext(ctx, e.ffmpeg(), args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg clip: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractThumbnail grabs a frame from the middle of the scene.
func (e *FFmpegExtractor) ExtractThumbnail(ctx context.Context, videoPath string, scene Scene, thumbnailPath string) error {
	midpoint := scene.Start + scene.Duration()/2
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(midpoint),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		thumbnailPath,
	}
	cmd := commandContext(ctx, e.ffmpeg(), args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
