package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Snapshot, list, and restore scene index archives",
	}

	archiveCmd.AddCommand(newArchiveCreateCommand(ctx))
	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	archiveCmd.AddCommand(newArchiveRestoreCommand(ctx))

	return archiveCmd
}

func newArchiveCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Archive the live index and start fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			info, err := store.ArchiveAndReset(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Archived %d scene(s) to %s\n", info.SceneCount, info.Path)
			fmt.Fprintln(out, "Live index is now empty")
			return nil
		},
	}
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived index snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			archives, err := store.ListArchives(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, archives)
			}
			out := cmd.OutOrStdout()
			if len(archives) == 0 {
				fmt.Fprintln(out, "No archives")
				return nil
			}
			rows := make([][]string, 0, len(archives))
			for _, archive := range archives {
				rows = append(rows, []string{
					archive.Name,
					archive.Timestamp.Format(time.DateTime),
					fmt.Sprintf("%d", archive.SceneCount),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Archive", "Created", "Scenes"}, rows, 3))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newArchiveRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Replace the live index with an archived snapshot",
		Long: `Replace the live index with an archived snapshot.

The argument is an archive name from "archive list" or a path to an archive
file. The current live index is archived first, so nothing is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := ctx.searchEngine()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(args[0])
			if !strings.ContainsRune(target, os.PathSeparator) {
				target = filepath.Join(cfg.Paths.ArchiveDir, target)
			}
			if !engine.Restore(cmd.Context(), target) {
				return fmt.Errorf("restore from %s failed; live index unchanged", target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored index from %s\n", target)
			return nil
		},
	}
}
