package model

import "time"

// Document is a generated artifact hosted outside the application (a Drive
// CSV). It is written once and never modified; projects reference it.
type Document struct {
	ID        string      `json:"id"`
	Link      string      `json:"link"`
	CreatedBy UserSummary `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}
