package model

import "encoding/json"

// Confirmation is the result of a successful wait, optionally tied to a submitted extrinsic.
type Confirmation struct {
	TxHash    string          `json:"tx_hash,omitempty"`
	Module    string          `json:"module"`
	Event     string          `json:"event"`
	Data      string          `json:"data"`
	Args      []ArgRecord     `json:"args"`
	Decoded   json.RawMessage `json:"decoded,omitempty"`
	MatchedAt string          `json:"matched_at"`
}
