package scriptseq

import (
	"takeone/internal/search"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Action is one discrete visual beat extracted from a script. Sequence
// numbers are 1-based, contiguous, and follow script order.
type Action struct {
	Sequence    int    `json:"sequence"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// ActionResult pairs an action with its footage matches. Actions with zero
// matches stay in the result with MatchCount 0.
type ActionResult struct {
	Sequence    int                 `json:"sequence"`
	Action      string              `json:"action"`
	Description string              `json:"description,omitempty"`
	Matches     []search.SceneMatch `json:"matches"`
	MatchCount  int                 `json:"match_count"`
}

// Result is the complete outcome of a script search run.
type Result struct {
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
	Script           string         `json:"script"`
	TranslatedScript string         `json:"translated_script,omitempty"`
	Actions          []ActionResult `json:"actions"`
	TotalActions     int            `json:"total_actions"`
	TotalMatches     int            `json:"total_matches"`
}
