package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"takeone/internal/logging"
	"takeone/internal/services/llm"
)

// Completer is the slice of the LLM client the expander needs.
type Completer interface {
	Available() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Expander turns a query into phrasing variants for fan-out search. Expansion
// is best-effort: any failure degrades to the original query alone, and the
// original query is always the first variant.
type Expander struct {
	completer   Completer
	maxVariants int
	logger      *slog.Logger
}

const expandSystemPrompt = `You rewrite video footage search queries. Given one query, produce alternative phrasings that would match the same footage: synonyms, camera and shot terminology, mood and lighting descriptions, and concrete visual details. Respond with a JSON object of the form {"variants": ["...", "..."]} containing only the rewritten queries, without the original.`

// NewExpander builds a query expander. maxVariants caps the total variant
// count including the original query.
func NewExpander(completer Completer, maxVariants int, logger *slog.Logger) *Expander {
	if maxVariants < 1 {
		maxVariants = 1
	}
	return &Expander{
		completer:   completer,
		maxVariants: maxVariants,
		logger:      logging.NewComponentLogger(logger, "query-expander"),
	}
}

// Expand returns the variant list for a query. The result always has the
// original query first, contains no duplicates, and never exceeds the
// configured maximum. Expand never returns an error.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	variants := []string{query}
	if e == nil || e.completer == nil || !e.completer.Available() || e.maxVariants <= 1 {
		return variants
	}

	content, err := e.completer.CompleteJSON(ctx, expandSystemPrompt,
		fmt.Sprintf("Query: %s", query))
	if err != nil {
		logging.WarnWithContext(e.logger, "query expansion failed", "expansion_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "searching with the original query only"),
		)
		return variants
	}

	var payload struct {
		Variants []string `json:"variants"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		// Some models answer with a bare array instead of the object form.
		var bare []string
		if arrErr := llm.DecodeJSON(content, &bare); arrErr != nil {
			logging.WarnWithContext(e.logger, "query expansion response unparseable", "expansion_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "searching with the original query only"),
			)
			return variants
		}
		payload.Variants = bare
	}

	seen := map[string]struct{}{normalizeVariant(query): {}}
	for _, candidate := range payload.Variants {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		key := normalizeVariant(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, candidate)
		if len(variants) >= e.maxVariants {
			break
		}
	}

	e.logger.Debug("expanded query",
		logging.String(logging.FieldQuery, query),
		logging.Int(logging.FieldVariants, len(variants)),
	)
	return variants
}

func normalizeVariant(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
