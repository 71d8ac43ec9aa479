// Package search implements the scene search engine: free-text queries are
// expanded into phrasing variants, each variant is embedded and run against
// the scene store with over-fetch, and the per-variant results are merged
// keeping the best score per scene before ranking and truncation.
package search
