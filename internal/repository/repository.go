// Package repository declares the storage contracts the services depend on.
// Implementations live in sub-packages (sqlite); services only see these
// interfaces so tests can swap in fakes.
package repository

import (
	"context"

	"github.com/sakif/qi-research/internal/model"
)

// UserRepository stores accounts.
// Create returns an apperror.ErrConflict when the username or email is taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateAPIKey(ctx context.Context, id, apiKey string) error
}

// ProjectRepository stores projects together with their collaborator set and
// their ordered document list. Every read returns populated projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Project, error)
	ListByCollaborator(ctx context.Context, userID string) ([]model.Project, error)

	// AddCollaborator is an atomic add-if-absent. It returns
	// apperror.ErrConflict when userID is already in the set and
	// apperror.ErrNotFound when the project does not exist.
	AddCollaborator(ctx context.Context, projectID, userID string) error

	// AttachDocument inserts doc and appends it to the project's document
	// list in a single transaction.
	AttachDocument(ctx context.Context, projectID string, doc *model.Document) error
}

// GPTKeyRepository stores the single application-wide LLM key.
type GPTKeyRepository interface {
	Get(ctx context.Context) (*model.GPTKey, error)
	// Upsert creates the key or replaces it.
	Upsert(ctx context.Context, key, updatedBy string) (*model.GPTKey, error)
	// Update replaces an existing key; apperror.ErrNotFound if none was set.
	Update(ctx context.Context, key, updatedBy string) (*model.GPTKey, error)
}

// CollaborationRequestRepository is the log of collaboration requests.
type CollaborationRequestRepository interface {
	Create(ctx context.Context, req *model.CollaborationRequest) error
	// Accept adds the requester to the project's collaborators and records
	// the request as accepted, atomically. ErrNotFound for a missing project,
	// ErrConflict when the requester already collaborates.
	Accept(ctx context.Context, req *model.CollaborationRequest) error
}
