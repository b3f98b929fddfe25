package model

import "time"

// CollaborationStatus is the lifecycle state of a CollaborationRequest.
type CollaborationStatus string

const (
	CollaborationPending  CollaborationStatus = "pending"
	CollaborationAccepted CollaborationStatus = "accepted"
	CollaborationRejected CollaborationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s CollaborationStatus) Valid() bool {
	switch s {
	case CollaborationPending, CollaborationAccepted, CollaborationRejected:
		return true
	}
	return false
}

// CollaborationRequest records a user asking to join a project.
type CollaborationRequest struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"projectId"`
	RequesterID string              `json:"requesterId"`
	Status      CollaborationStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}
