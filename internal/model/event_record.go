package model

// EventRecord is the JSON representation of one decoded event record.
type EventRecord struct {
	Blob     int         `json:"blob"`
	Position int         `json:"position"`
	Phase    string      `json:"phase"`
	Module   string      `json:"module"`
	Event    string      `json:"event"`
	Data     string      `json:"data"`
	Args     []ArgRecord `json:"args"`
	Topics   []string    `json:"topics,omitempty"`
}

// ArgRecord keeps one argument's schema type and raw bytes.
type ArgRecord struct {
	Type string `json:"type"`
	Data string `json:"data"`
}
