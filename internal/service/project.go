package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/mail"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/repository"
)

const collaborationSubject = "Collaboration Request"

// ProjectService owns project creation, the involved/not-involved split and
// the collaboration workflows.
type ProjectService struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	requests repository.CollaborationRequestRepository
	mailer   mail.Mailer
	logger   *slog.Logger
	now      func() time.Time
}

func NewProjectService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	requests repository.CollaborationRequestRepository,
	mailer mail.Mailer,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		requests: requests,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateProjectInput is the data a project is created from.
type CreateProjectInput struct {
	Title       string
	Description string
	SearchQuery string
}

// Create stores a new project owned by ownerID and returns it populated.
func (s *ProjectService) Create(ctx context.Context, ownerID string, in CreateProjectInput) (*model.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.SearchQuery = strings.TrimSpace(in.SearchQuery)

	if in.Title == "" || in.Description == "" || in.SearchQuery == "" {
		return nil, apperror.ValidationFailed("", "Title, description, and search query are required.")
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	project := &model.Project{
		Title:          in.Title,
		Description:    in.Description,
		SearchQuery:    model.SearchQuery{Query: in.SearchQuery},
		Owner:          owner.Summary(),
		LastModifiedBy: owner.ID,
		LastModifiedAt: &now,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.String("projectID", project.ID),
		slog.String("ownerID", owner.ID),
	)
	return project, nil
}

func (s *ProjectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("projectId", "Project ID is required")
	}
	return s.projects.GetByID(ctx, id)
}

// ListForUser splits every project into those userID owns or collaborates on
// and the rest. Involved projects come owned first, then collaborated, each
// in creation order, with no project listed twice.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) (*model.ProjectBuckets, error) {
	owned, err := s.projects.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing owned projects: %w", err)
	}
	shared, err := s.projects.ListByCollaborator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing collaborated projects: %w", err)
	}
	all, err := s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	buckets := &model.ProjectBuckets{
		Involved:    make([]model.Project, 0, len(owned)+len(shared)),
		NotInvolved: make([]model.Project, 0, len(all)),
	}
	seen := make(map[string]bool, len(owned)+len(shared))
	for _, group := range [][]model.Project{owned, shared} {
		for _, p := range group {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			buckets.Involved = append(buckets.Involved, p)
		}
	}
	for _, p := range all {
		if !seen[p.ID] {
			buckets.NotInvolved = append(buckets.NotInvolved, p)
		}
	}
	return buckets, nil
}

// RequestCollaboration adds requesterID to the project, records the request
// as accepted and emails the owner.
//
// Both email addresses are checked before anything is written, so a project
// with a broken owner record is never half-updated.
func (s *ProjectService) RequestCollaboration(ctx context.Context, projectID, requesterID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return apperror.ValidationFailed("projectId", "Project ID is required")
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}
	if project.Owner.Email == "" || requester.Email == "" {
		return fmt.Errorf("project %s: owner or requester has no email address", projectID)
	}

	// The collaborator and the request row are written together; a failed
	// insert must not leave the requester joined without a notification.
	req := &model.CollaborationRequest{
		ProjectID:   projectID,
		RequesterID: requesterID,
		Status:      model.CollaborationAccepted,
	}
	if err := s.requests.Accept(ctx, req); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return apperror.Conflict("projectId", "You are already a collaborator on this project.")
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("recording collaboration request: %w", err)
	}

	msg := mail.Message{
		To:      project.Owner.Email,
		Subject: collaborationSubject,
		Body:    collaborationBody(project.Title, requester.Email),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send collaboration email",
			slog.String("projectID", projectID),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream("Failed to send collaboration request", err)
	}

	s.logger.Info("collaboration requested",
		slog.String("projectID", projectID),
		slog.String("requesterID", requesterID),
	)
	return nil
}

func collaborationBody(title, requesterEmail string) string {
	return fmt.Sprintf("Hello,\n\n"+
		"A new collaboration request has been made for your project titled \"%s\" by %s.\n\n"+
		"You can review and respond to this request as needed.\n\n"+
		"Best regards,\nYour Team", title, requesterEmail)
}

// AddCollaborator adds the user registered under email to the project.
func (s *ProjectService) AddCollaborator(ctx context.Context, projectID, email string) error {
	projectID = strings.TrimSpace(projectID)
	email = strings.TrimSpace(email)
	if projectID == "" || email == "" {
		return apperror.ValidationFailed("", "Project ID and email are required.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.projects.AddCollaborator(ctx, projectID, user.ID); err != nil {
		return err
	}

	s.logger.Info("collaborator added",
		slog.String("projectID", projectID),
		slog.String("userID", user.ID),
	)
	return nil
}
