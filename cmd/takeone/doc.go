// Command takeone is the CLI for the scene search index: it ingests videos,
// answers free-text and script queries, and manages index archives.
package main
