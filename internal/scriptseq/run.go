package scriptseq

import (
	"context"
	"log/slog"
	"strings"

	"takeone/internal/logging"
	"takeone/internal/search"
	"takeone/internal/services"
)

// Searcher is the slice of the search engine the decomposer dispatches to.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.SceneMatch, error)
}

// Completer is the slice of the LLM client used for translation and
// decomposition.
type Completer interface {
	Available() bool
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options control a script search run.
type Options struct {
	// ResultsPerAction caps matches per action. Zero means the configured
	// default.
	ResultsPerAction int
	// UseExpansion enables query expansion on the per-action searches.
	UseExpansion bool
	// AutoTranslate renders the script in the canonical language before
	// decomposition. Translation never runs again on per-action searches.
	AutoTranslate bool
}

// Decomposer orchestrates script search: translate, decompose, dispatch one
// search per action, assemble in script order.
type Decomposer struct {
	searcher                Searcher
	completer               Completer
	canonicalLanguage       string
	defaultResultsPerAction int
	logger                  *slog.Logger
}

// NewDecomposer wires a script decomposer. canonicalLanguage and
// defaultResultsPerAction come from configuration.
func NewDecomposer(searcher Searcher, completer Completer, canonicalLanguage string, defaultResultsPerAction int, logger *slog.Logger) *Decomposer {
	if defaultResultsPerAction < 1 {
		defaultResultsPerAction = 1
	}
	return &Decomposer{
		searcher:                searcher,
		completer:               completer,
		canonicalLanguage:       canonicalLanguage,
		defaultResultsPerAction: defaultResultsPerAction,
		logger:                  logging.NewComponentLogger(logger, "scriptseq"),
	}
}

// Run executes the full script search pipeline. Zero decomposed actions is
// reported as a status=error result, not a Go error; infrastructure failures
// (store unreachable) are returned as errors.
func (d *Decomposer) Run(ctx context.Context, script string, opts Options) (*Result, error) {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "scriptseq", "run", "script must not be empty", nil)
	}
	resultsPerAction := opts.ResultsPerAction
	if resultsPerAction == 0 {
		resultsPerAction = d.defaultResultsPerAction
	}
	if resultsPerAction < 1 {
		return nil, services.Wrap(services.ErrValidation, "scriptseq", "run", "results_per_action must be at least 1", nil)
	}

	result := &Result{
		Status: StatusSuccess,
		Script: script,
	}

	working := trimmed
	if opts.AutoTranslate {
		translated := d.translate(ctx, trimmed)
		if translated != trimmed {
			result.TranslatedScript = translated
		}
		working = translated
	}

	actions := d.decompose(ctx, working)
	if len(actions) == 0 {
		result.Status = StatusError
		result.Error = "no actions could be extracted from the script"
		result.Actions = []ActionResult{}
		return result, nil
	}

	d.logger.Info("script decomposed",
		logging.Int(logging.FieldActions, len(actions)),
	)

	result.Actions = make([]ActionResult, 0, len(actions))
	for _, action := range actions {
		matches, err := d.searcher.Search(ctx, action.Action, search.Options{
			TopK:         resultsPerAction,
			UseExpansion: opts.UseExpansion,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrUnavailable, "scriptseq", "dispatch", "action search failed", err)
		}
		if matches == nil {
			matches = []search.SceneMatch{}
		}
		result.Actions = append(result.Actions, ActionResult{
			Sequence:    action.Sequence,
			Action:      action.Action,
			Description: action.Description,
			Matches:     matches,
			MatchCount:  len(matches),
		})
		result.TotalMatches += len(matches)
	}
	result.TotalActions = len(result.Actions)
	return result, nil
}
