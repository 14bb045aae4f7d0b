package results

import "encoding/json"

// Result is the response for a polled outcome.
type Result struct {
	Status     string          `json:"status"`
	Value      json.RawMessage `json:"value,omitempty"`
	ErrMessage string          `json:"errMessage,omitempty"`
}
