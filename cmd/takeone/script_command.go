package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"takeone/internal/scriptseq"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	var (
		scriptFile       string
		resultsPerAction int
		noExpansion      bool
		noTranslate      bool
		format           string
		outputFile       string
	)

	cmd := &cobra.Command{
		Use:   "script [text]",
		Short: "Decompose a script into actions and find footage for each",
		Long: `Decompose a script into actions and find footage for each.

The script is read from the argument, from --file, or from stdin. Each
detected action is searched independently and results keep script order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd, args, scriptFile)
			if err != nil {
				return err
			}

			decomposer, err := ctx.scriptDecomposer()
			if err != nil {
				return err
			}
			result, err := decomposer.Run(cmd.Context(), script, scriptseq.Options{
				ResultsPerAction: resultsPerAction,
				UseExpansion:     !noExpansion,
				AutoTranslate:    !noTranslate,
			})
			if err != nil {
				return err
			}

			rendered, err := scriptseq.Export(result, format)
			if err != nil {
				return err
			}

			if target := strings.TrimSpace(outputFile); target != "" {
				if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
					return fmt.Errorf("write output file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s results to %s\n", format, target)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
			}

			if result.Status != scriptseq.StatusSuccess {
				return fmt.Errorf("script search failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Read the script from a file")
	cmd.Flags().IntVarP(&resultsPerAction, "results", "n", 0, "Matches per action (default from config)")
	cmd.Flags().BoolVar(&noExpansion, "no-expansion", false, "Search each action with its literal text only")
	cmd.Flags().BoolVar(&noTranslate, "no-translate", false, "Skip script translation")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, csv, or json")
	cmd.Flags().StringVar(&outputFile, "output", "", "Write results to a file instead of stdout")
	return cmd
}

func readScript(cmd *cobra.Command, args []string, scriptFile string) (string, error) {
	if path := strings.TrimSpace(scriptFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read script from stdin: %w", err)
	}
	return string(data), nil
}
