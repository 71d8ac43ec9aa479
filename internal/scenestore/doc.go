// Package scenestore persists scene embeddings and metadata in SQLite and
// answers cosine nearest-neighbor queries over them. The store also owns
// archive management: the live database can be snapshotted aside, reset, and
// later restored, with a file lock serializing those operations against
// concurrent mutation.
package scenestore
