// Package analysis defines the structured scene description produced by the
// vision model and the deterministic flattening that turns it into the single
// string the index embeds.
package analysis
