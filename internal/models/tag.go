package models

// Tag is a user-defined label the AI can assign by emitting the tag's marker
// token in its response text.
type Tag struct {
	Name string `json:"name"`
	// Marker is the delimiter-wrapped token derived from Name, e.g.
	// "[[Urgent]]". Unique case-insensitively across all tags.
	Marker string `json:"marker"`
	Color  string `json:"color"`
}

// PromptVariable is a reusable {KEY} placeholder value for prompt templates.
type PromptVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AccountSettings is the stored mailbox configuration. The password is
// stored as entered.
type AccountSettings struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	DefaultFolder string `json:"default_folder"`
	MaxResults    int    `json:"max_results"`
}
