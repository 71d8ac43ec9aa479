package scriptseq

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Export renders a result in the named format: "text", "csv", or "json".
// Pure: nothing is recomputed from live data.
func Export(result *Result, format string) (string, error) {
	if result == nil {
		return "", fmt.Errorf("export: nil result")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return exportText(result), nil
	case "csv":
		return exportCSV(result)
	case "json":
		return exportJSON(result)
	default:
		return "", fmt.Errorf("export: unsupported format %q (want text, csv, or json)", format)
	}
}

func exportText(result *Result) string {
	var b strings.Builder
	b.WriteString("Script Search Results\n")
	b.WriteString("=====================\n")
	if result.Status != StatusSuccess {
		fmt.Fprintf(&b, "Status: %s (%s)\n", result.Status, result.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "Actions: %d, total matches: %d\n", result.TotalActions, result.TotalMatches)
	for _, action := range result.Actions {
		fmt.Fprintf(&b, "\n%d. %s\n", action.Sequence, action.Action)
		if len(action.Matches) == 0 {
			b.WriteString("   (no matches)\n")
			continue
		}
		for i, match := range action.Matches {
			fmt.Fprintf(&b, "   %d) %s — %.1f%% match, %.1fs\n",
				i+1, match.ClipPath, match.Score*100, match.Duration)
			if match.Description != "" {
				fmt.Fprintf(&b, "      %s\n", match.Description)
			}
		}
	}
	return b.String()
}

func exportCSV(result *Result) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"sequence", "action", "path", "score", "duration", "description"}); err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}
	for _, action := range result.Actions {
		for _, match := range action.Matches {
			row := []string{
				fmt.Sprintf("%d", action.Sequence),
				action.Action,
				match.ClipPath,
				fmt.Sprintf("%.4f", match.Score),
				fmt.Sprintf("%.2f", match.Duration),
				match.Description,
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("export csv: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}
	return b.String(), nil
}

func exportJSON(result *Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}
	return string(data), nil
}
