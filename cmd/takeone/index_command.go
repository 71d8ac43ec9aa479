package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var videoID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "index <video-file>",
		Short: "Detect, analyze, and index the scenes of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.ingestPipeline()
			if err != nil {
				return err
			}

			videoPath := args[0]
			id := strings.TrimSpace(videoID)
			if id == "" {
				id = defaultVideoID(videoPath)
			}

			report, err := pipeline.ProcessVideo(cmd.Context(), videoPath, id)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %s as %s\n", videoPath, report.VideoID)
			fmt.Fprintf(out, "Scenes: %d detected, %d indexed, %d failed\n",
				report.ScenesDetected, report.ScenesIndexed, report.ScenesFailed)
			fmt.Fprintf(out, "Run: %s (%s)\n", report.RunID,
				report.FinishedAt.Sub(report.StartedAt).Round(100*time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "id", "", "Video identifier (default: file name without extension)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a summary")
	return cmd
}

// defaultVideoID derives an identifier from the file name, replacing
// characters that would collide with the scene id format.
func defaultVideoID(videoPath string) string {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return strings.Trim(base, "-")
}
