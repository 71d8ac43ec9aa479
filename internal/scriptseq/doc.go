// Package scriptseq turns a free-form script into an ordered sequence of
// footage matches: the script is translated to the canonical language,
// decomposed into discrete visual actions by a generative model (with a
// deterministic line-based fallback), and each action is dispatched to the
// search engine. The assembled result preserves script order and can be
// exported as text, CSV, or JSON.
package scriptseq
