package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"takeone/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		topK         int
		noExpansion  bool
		jsonOut      bool
		videoFilter  string
		typeFilter   string
		moodFilter   string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed scenes with free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine()
			if err != nil {
				return err
			}

			filters := map[string]any{}
			if v := strings.TrimSpace(videoFilter); v != "" {
				filters["video_id"] = v
			}
			if v := strings.TrimSpace(typeFilter); v != "" {
				filters["scene_type"] = v
			}
			if v := strings.TrimSpace(moodFilter); v != "" {
				filters["mood"] = v
			}
			if len(filters) == 0 {
				filters = nil
			}

			matches, err := engine.Search(cmd.Context(), strings.Join(args, " "), search.Options{
				TopK:         topK,
				Filters:      filters,
				UseExpansion: !noExpansion,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, matches)
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching scenes")
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				rows = append(rows, []string{
					match.SceneID,
					fmt.Sprintf("%.1f%%", match.Score*100),
					fmt.Sprintf("%.1fs", match.Duration),
					match.SceneType,
					match.Mood,
					truncateCell(match.Description, 60),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Scene", "Score", "Length", "Type", "Mood", "Description"},
				rows, 2, 3))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top", "n", 0, "Maximum matches to return (default from config)")
	cmd.Flags().BoolVar(&noExpansion, "no-expansion", false, "Search with the literal query only")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().StringVar(&videoFilter, "video", "", "Only match scenes from this video")
	cmd.Flags().StringVar(&typeFilter, "type", "", "Only match scenes of this scene type")
	cmd.Flags().StringVar(&moodFilter, "mood", "", "Only match scenes with this mood")
	return cmd
}

func truncateCell(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
