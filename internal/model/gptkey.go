package model

import "time"

// GPTKey is the single, application-wide LLM API key.
// There is exactly one slot; writing it replaces the previous value.
type GPTKey struct {
	Key       string    `json:"key"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}
