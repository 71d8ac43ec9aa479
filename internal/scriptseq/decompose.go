package scriptseq

import (
	"context"
	"fmt"
	"strings"

	"takeone/internal/logging"
	"takeone/internal/services/llm"
)

const translateSystemPrompt = `You translate film scripts into natural %s. Preserve line breaks and the order of lines exactly. Keep all visual and action content intact; do not summarize, merge, or drop lines. Respond with the translated script only.`

const decomposeSystemPrompt = `You split film scripts into discrete visual actions that can each be matched against stock footage independently. Respond with a JSON object of the form {"actions": [{"sequence": 1, "action": "...", "description": "..."}]}. One entry per distinct visual beat, in script order. "action" is a short searchable phrase describing what is visible; "description" adds context. Number sequences starting at 1.`

// translate renders the script in the canonical language. Best-effort: any
// failure returns the original text unchanged.
func (d *Decomposer) translate(ctx context.Context, script string) string {
	if d.completer == nil || !d.completer.Available() {
		return script
	}
	translated, err := d.completer.CompleteText(ctx,
		fmt.Sprintf(translateSystemPrompt, d.languageName()),
		script)
	if err != nil {
		logging.WarnWithContext(d.logger, "script translation failed", "translation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "decomposing the original untranslated script"),
		)
		return script
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return script
	}
	return translated
}

func (d *Decomposer) languageName() string {
	if d.canonicalLanguage == "" || strings.HasPrefix(d.canonicalLanguage, "en") {
		return "English"
	}
	return d.canonicalLanguage
}

// decompose extracts the ordered action list. The generative model is tried
// first; any failure falls back to the deterministic line parser.
func (d *Decomposer) decompose(ctx context.Context, script string) []Action {
	if d.completer != nil && d.completer.Available() {
		if actions, err := d.decomposeWithModel(ctx, script); err == nil {
			return actions
		} else {
			logging.WarnWithContext(d.logger, "model decomposition failed", "decomposition_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "using the line-based fallback parser"),
			)
		}
	}
	return parseLines(script)
}

func (d *Decomposer) decomposeWithModel(ctx context.Context, script string) ([]Action, error) {
	content, err := d.completer.CompleteJSON(ctx, decomposeSystemPrompt, script)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Actions []Action `json:"actions"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		var bare []Action
		if arrErr := llm.DecodeJSON(content, &bare); arrErr != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
		payload.Actions = bare
	}

	actions := make([]Action, 0, len(payload.Actions))
	for _, action := range payload.Actions {
		action.Action = strings.TrimSpace(action.Action)
		if action.Action == "" {
			continue
		}
		actions = append(actions, action)
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("model returned no usable actions")
	}
	// Model numbering is advisory; enforce contiguous 1-based sequence.
	for i := range actions {
		actions[i].Sequence = i + 1
	}
	return actions, nil
}

// minActionLength is the shortest line the fallback parser keeps. Shorter
// lines are almost always headings, names, or beats with no visual content.
const minActionLength = 10

// parseLines is the deterministic fallback decomposer: one action per line,
// dropping blank lines, lines under minActionLength characters, and
// parenthesized stage directions.
func parseLines(script string) []Action {
	var actions []Action
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len([]rune(line)) < minActionLength {
			continue
		}
		if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
			continue
		}
		actions = append(actions, Action{
			Sequence: len(actions) + 1,
			Action:   line,
		})
	}
	return actions
}
