// Package ingest indexes video files: scenes are detected, a clip and
// thumbnail are extracted per scene, each scene is analyzed by a vision
// model, and the flattened analysis text is embedded and stored. Scene
// detection, extraction, and analysis sit behind narrow interfaces so the
// ffmpeg- and model-backed implementations can be swapped out in tests.
package ingest
