package scriptseq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"takeone/internal/logging"
	"takeone/internal/search"
	"takeone/internal/services"
)

type fakeSearcher struct {
	matches   map[string][]search.SceneMatch
	err       error
	queries   []string
	lastTopK  int
	lastExpan bool
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts search.Options) ([]search.SceneMatch, error) {
	f.queries = append(f.queries, query)
	f.lastTopK = opts.TopK
	f.lastExpan = opts.UseExpansion
	if f.err != nil {
		return nil, f.err
	}
	return f.matches[query], nil
}

type fakeCompleter struct {
	available     bool
	textResponse  string
	textErr       error
	jsonResponse  string
	jsonErr       error
	textCalls     int
	jsonCalls     int
	lastUserText  string
	lastUserJSON  string
}

func (f *fakeCompleter) Available() bool { return f.available }

func (f *fakeCompleter) CompleteText(_ context.Context, _, user string) (string, error) {
	f.textCalls++
	f.lastUserText = user
	return f.textResponse, f.textErr
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.jsonCalls++
	f.lastUserJSON = user
	return f.jsonResponse, f.jsonErr
}

func newTestDecomposer(searcher Searcher, completer Completer) *Decomposer {
	return NewDecomposer(searcher, completer, "en", 3, logging.NewNop())
}

func sceneMatch(sceneID string, score float64) search.SceneMatch {
	return search.SceneMatch{SceneID: sceneID, Score: score, ClipPath: "/clips/" + sceneID + ".mp4", Duration: 4.5}
}

func TestRunValidatesBeforeExternalCalls(t *testing.T) {
	searcher := &fakeSearcher{}
	completer := &fakeCompleter{available: true}
	d := newTestDecomposer(searcher, completer)

	if _, err := d.Run(context.Background(), "  \n ", Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty script, got %v", err)
	}
	if _, err := d.Run(context.Background(), "a real script line here", Options{ResultsPerAction: -2}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for negative results_per_action, got %v", err)
	}
	if completer.textCalls != 0 || completer.jsonCalls != 0 || len(searcher.queries) != 0 {
		t.Fatal("validation must precede any external call")
	}
}

func TestRunFallbackParserMatchesLineRules(t *testing.T) {
	script := "A person walks into a room.\nThey sit down.\n(pause)\nThey speak."
	searcher := &fakeSearcher{}
	d := newTestDecomposer(searcher, &fakeCompleter{available: false})

	result, err := d.Run(context.Background(), script, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("unexpected status %s (%s)", result.Status, result.Error)
	}
	want := []string{"A person walks into a room.", "They sit down.", "They speak."}
	if len(result.Actions) != len(want) {
		t.Fatalf("expected %d actions, got %d", len(want), len(result.Actions))
	}
	for i, action := range result.Actions {
		if action.Sequence != i+1 {
			t.Fatalf("sequence not contiguous at %d: %d", i, action.Sequence)
		}
		if action.Action != want[i] {
			t.Fatalf("action %d wrong: %q", i, action.Action)
		}
	}
}

func TestRunModelDecompositionRenumbers(t *testing.T) {
	completer := &fakeCompleter{
		available:    true,
		jsonResponse: `{"actions": [{"sequence": 3, "action": "a car drives away", "description": "wide shot"}, {"sequence": 7, "action": "a door slams shut"}]}`,
	}
	searcher := &fakeSearcher{}
	d := newTestDecomposer(searcher, completer)

	result, err := d.Run(context.Background(), "some script with things happening", Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(result.Actions))
	}
	if result.Actions[0].Sequence != 1 || result.Actions[1].Sequence != 2 {
		t.Fatalf("model numbering not normalized: %d, %d", result.Actions[0].Sequence, result.Actions[1].Sequence)
	}
	if result.Actions[0].Description != "wide shot" {
		t.Fatalf("description lost: %+v", result.Actions[0])
	}
}

func TestRunModelFailureFallsBackToLineParser(t *testing.T) {
	completer := &fakeCompleter{available: true, jsonErr: errors.New("model offline")}
	searcher := &fakeSearcher{}
	d := newTestDecomposer(searcher, completer)

	result, err := d.Run(context.Background(), "A person opens the window.\nSunlight fills the room.", Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Actions) != 2 {
		t.Fatalf("fallback parser should yield 2 actions, got %d", len(result.Actions))
	}
}

func TestRunTranslationIsBestEffortAndRunsOnce(t *testing.T) {
	completer := &fakeCompleter{
		available:    true,
		textResponse: "A dog runs across the field.",
		jsonErr:      errors.New("force fallback"),
	}
	searcher := &fakeSearcher{}
	d := newTestDecomposer(searcher, completer)

	result, err := d.Run(context.Background(), "Ein Hund rennt über das Feld.", Options{AutoTranslate: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if completer.textCalls != 1 {
		t.Fatalf("translation must run exactly once, ran %d times", completer.textCalls)
	}
	if result.TranslatedScript != "A dog runs across the field." {
		t.Fatalf("translated script not recorded: %q", result.TranslatedScript)
	}
	// The fallback parser must see the translated text.
	if result.Actions[0].Action != "A dog runs across the field." {
		t.Fatalf("decomposition did not use translated script: %q", result.Actions[0].Action)
	}
}

func TestRunTranslationFailureUsesOriginal(t *testing.T) {
	completer := &fakeCompleter{
		available: true,
		textErr:   errors.New("translator down"),
		jsonErr:   errors.New("force fallback"),
	}
	d := newTestDecomposer(&fakeSearcher{}, completer)

	result, err := d.Run(context.Background(), "Ein Hund rennt über das Feld.", Options{AutoTranslate: true})
	if err != nil {
		t.Fatalf("translation failure must not fail the run: %v", err)
	}
	if result.TranslatedScript != "" {
		t.Fatalf("failed translation must not be recorded: %q", result.TranslatedScript)
	}
	if result.Actions[0].Action != "Ein Hund rennt über das Feld." {
		t.Fatalf("expected original text, got %q", result.Actions[0].Action)
	}
}

func TestRunDispatchesPerActionWithOptions(t *testing.T) {
	searcher := &fakeSearcher{matches: map[string][]search.SceneMatch{
		"A person walks into a room.": {sceneMatch("a_scene_0000", 0.9)},
	}}
	d := newTestDecomposer(searcher, &fakeCompleter{available: false})

	result, err := d.Run(context.Background(),
		"A person walks into a room.\nThey sit down.",
		Options{ResultsPerAction: 2, UseExpansion: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(searcher.queries) != 2 {
		t.Fatalf("expected one search per action, got %d", len(searcher.queries))
	}
	if searcher.lastTopK != 2 || !searcher.lastExpan {
		t.Fatalf("dispatch options not forwarded: topK=%d expansion=%v", searcher.lastTopK, searcher.lastExpan)
	}

	if result.TotalActions != 2 || result.TotalMatches != 1 {
		t.Fatalf("totals wrong: actions=%d matches=%d", result.TotalActions, result.TotalMatches)
	}
	// The zero-match action stays in the result.
	second := result.Actions[1]
	if second.MatchCount != 0 || second.Matches == nil || len(second.Matches) != 0 {
		t.Fatalf("zero-match action malformed: %+v", second)
	}
}

func TestRunZeroActionsIsErrorStatus(t *testing.T) {
	// Every line is under the fallback parser's length floor.
	d := newTestDecomposer(&fakeSearcher{}, &fakeCompleter{available: false})

	result, err := d.Run(context.Background(), "short\n(cut)\nok", Options{})
	if err != nil {
		t.Fatalf("zero actions must be a result status, not an error: %v", err)
	}
	if result.Status != StatusError || result.Error == "" {
		t.Fatalf("expected status=error with message, got %+v", result)
	}
	if result.TotalActions != 0 || len(result.Actions) != 0 {
		t.Fatalf("error result must carry no actions: %+v", result)
	}
}

func TestRunSearchFailureIsTerminal(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store gone")}
	d := newTestDecomposer(searcher, &fakeCompleter{available: false})

	if _, err := d.Run(context.Background(), "A person walks into a room.", Options{}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestParseLines(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   []string
	}{
		{"drops short and parenthetical", "A person walks into a room.\nhi\n(pause)\nThey speak aloud.", []string{"A person walks into a room.", "They speak aloud."}},
		{"drops blank lines", "\n\nSomeone crosses the street.\n\n", []string{"Someone crosses the street."}},
		{"keeps order", "First thing happens here.\nSecond thing happens here.", []string{"First thing happens here.", "Second thing happens here."}},
		{"nothing usable", "(sigh)\nshort", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := parseLines(tc.script)
			if len(actions) != len(tc.want) {
				t.Fatalf("expected %d actions, got %v", len(tc.want), actions)
			}
			for i, action := range actions {
				if action.Action != tc.want[i] || action.Sequence != i+1 {
					t.Fatalf("action %d wrong: %+v", i, action)
				}
			}
		})
	}
}

func TestParseLinesCountsRunes(t *testing.T) {
	// Nine multibyte runes: under the floor even though the byte count is not.
	actions := parseLines(strings.Repeat("ü", 9))
	if len(actions) != 0 {
		t.Fatalf("rune-length floor not applied: %v", actions)
	}
}
