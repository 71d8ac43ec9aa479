package main

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check configuration, index, and external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			failed := false

			report := func(label string, kind statusKind, message string) {
				if kind == statusError {
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				report("config", statusError, err.Error())
				return fmt.Errorf("health check failed")
			}
			report("config", statusOK, "")

			if store, err := ctx.ensureStore(); err != nil {
				report("scene index", statusError, err.Error())
			} else if stats, err := store.Stats(cmd.Context()); err != nil {
				report("scene index", statusError, err.Error())
			} else {
				report("scene index", statusOK,
					fmt.Sprintf("%d scene(s), %d video(s)", stats.TotalScenes, stats.UniqueVideos))
			}

			if cfg.LLM.APIKey == "" {
				report("llm", statusWarn, "api key not set; expansion, scripts, and analysis degrade")
			} else {
				report("llm", statusOK, cfg.LLM.Model)
			}
			if cfg.Embedding.APIKey == "" {
				report("embedding", statusError, "api key not set; search and indexing cannot run")
			} else {
				report("embedding", statusOK, cfg.Embedding.Model)
			}

			for _, binary := range []string{cfg.Ingest.FFmpegBinary, cfg.Ingest.FFprobeBinary} {
				if _, err := exec.LookPath(binary); err != nil {
					report(binary, statusWarn, "not found on PATH; indexing unavailable")
				} else {
					report(binary, statusOK, "")
				}
			}

			if failed {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}
}
