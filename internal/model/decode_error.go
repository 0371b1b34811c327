package model

// DecodeError records a blob that could not be fully decoded.
type DecodeError struct {
	Blob    int    `json:"blob"`
	Line    int    `json:"line,omitempty"`
	Decoded int    `json:"decoded"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}
