package analysis

import "strings"

// Entities holds named things the vision model recognized in a scene. All
// fields are optional.
type Entities struct {
	People      []string `json:"people,omitempty"`
	Locations   []string `json:"locations,omitempty"`
	Objects     []string `json:"objects,omitempty"`
	Vehicles    []string `json:"vehicles,omitempty"`
	VisibleText []string `json:"text_visible,omitempty"`
}

// Setting describes where and when a scene takes place.
type Setting struct {
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// Person describes one person visible in the scene.
type Person struct {
	Description string `json:"description,omitempty"`
	Clothing    string `json:"clothing,omitempty"`
	Action      string `json:"action,omitempty"`
	Expression  string `json:"expression,omitempty"`
}

// SceneAnalysis is the structured description of a single scene. Every field
// is optional; BuildSearchText handles any combination of present fields.
type SceneAnalysis struct {
	Description         string   `json:"description,omitempty"`
	DetailedDescription string   `json:"detailed_description,omitempty"`
	SceneType           string   `json:"scene_type,omitempty"`
	Mood                string   `json:"mood,omitempty"`
	SecondaryMoods      []string `json:"secondary_moods,omitempty"`
	Entities            Entities `json:"entities,omitempty"`
	Setting             Setting  `json:"setting,omitempty"`
	People              []Person `json:"people,omitempty"`
	Actions             []string `json:"actions,omitempty"`
	Interactions        []string `json:"interactions,omitempty"`
	Lighting            string   `json:"lighting,omitempty"`
	Camera              string   `json:"camera,omitempty"`
	Colors              []string `json:"colors,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	Tags                []string `json:"tags,omitempty"`
}

// BuildSearchText flattens an analysis into the canonical pipe-delimited
// string that gets embedded. The field order is fixed so the same analysis
// always yields the same text, and therefore the same vector.
func BuildSearchText(a SceneAnalysis) string {
	var parts []string
	add := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if label == "" {
			parts = append(parts, value)
			return
		}
		parts = append(parts, label+": "+value)
	}
	addList := func(label string, values []string) {
		add(label, joinClean(values))
	}

	add("", a.Description)
	add("", a.DetailedDescription)
	add("Scene type", a.SceneType)
	add("Mood", a.Mood)
	addList("Secondary moods", a.SecondaryMoods)

	addList("People", a.Entities.People)
	addList("Locations", a.Entities.Locations)
	addList("Objects", a.Entities.Objects)
	addList("Vehicles", a.Entities.Vehicles)
	addList("Visible text", a.Entities.VisibleText)

	add("Location", a.Setting.Location)
	add("Time", a.Setting.TimeOfDay)

	for _, person := range a.People {
		var desc []string
		if v := strings.TrimSpace(person.Description); v != "" {
			desc = append(desc, v)
		}
		if v := strings.TrimSpace(person.Clothing); v != "" {
			desc = append(desc, "wearing "+v)
		}
		if v := strings.TrimSpace(person.Action); v != "" {
			desc = append(desc, "doing: "+v)
		}
		if v := strings.TrimSpace(person.Expression); v != "" {
			desc = append(desc, "expression: "+v)
		}
		if len(desc) > 0 {
			parts = append(parts, "Person: "+strings.Join(desc, ", "))
		}
	}

	addList("Actions", a.Actions)
	addList("Interactions", a.Interactions)
	add("Lighting", a.Lighting)
	add("Camera", a.Camera)
	addList("Colors", a.Colors)
	addList("Keywords", a.Keywords)
	addList("Tags", a.Tags)

	return strings.Join(parts, " | ")
}

// FlattenTags renders the tag list to the comma-separated form stored in
// scalar metadata. SplitTags reverses it.
func FlattenTags(tags []string) string {
	return joinClean(tags)
}

// SplitTags parses a comma-separated tag field back into a list. Empty input
// yields an empty (non-nil) slice so JSON output renders [] rather than null.
func SplitTags(flat string) []string {
	out := []string{}
	for _, tag := range strings.Split(flat, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func joinClean(values []string) string {
	var kept []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			kept = append(kept, value)
		}
	}
	return strings.Join(kept, ", ")
}
