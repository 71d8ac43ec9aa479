package logging

// Standardized attribute keys. Structured consumers (log search, the JSON
// handler) rely on these names staying stable.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"

	FieldDecisionType = "decision_type"

	FieldVideoID  = "video_id"
	FieldSceneID  = "scene_id"
	FieldQuery    = "query"
	FieldVariants = "variants"
	FieldActions  = "actions"
	FieldMatches  = "matches"
	FieldArchive  = "archive"
)
