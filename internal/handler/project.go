package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/service"
)

// ProjectManager is what ProjectHandler needs from service.ProjectService.
type ProjectManager interface {
	Create(ctx context.Context, ownerID string, in service.CreateProjectInput) (*model.Project, error)
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListForUser(ctx context.Context, userID string) (*model.ProjectBuckets, error)
	RequestCollaboration(ctx context.Context, projectID, requesterID string) error
	AddCollaborator(ctx context.Context, projectID, email string) error
}

type ProjectHandler struct {
	svc    ProjectManager
	logger *slog.Logger
}

func NewProjectHandler(svc ProjectManager, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

type createProjectRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SearchQuery queryField `json:"searchQuery"`
}

// CreateProjectResponse is returned by POST /api/create-project.
type CreateProjectResponse struct {
	Message string         `json:"message"`
	Project *model.Project `json:"project"`
}

type addCollaboratorRequest struct {
	ProjectID string `json:"projectId"`
	Email     string `json:"email"`
}

// HandleCreate creates a project owned by the caller.
//
// POST /api/create-project
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.svc.Create(r.Context(), userID, service.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		SearchQuery: string(req.SearchQuery),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateProjectResponse{
		Message: "Project created successfully",
		Project: p,
	})
}

// HandleList splits every project by whether the caller owns or
// collaborates on it.
//
// GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	buckets, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// HandleGetByID returns one populated project.
//
// GET /api/projects/{projectId} and GET /api/project{projectId}
func (h *ProjectHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectId")

	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRequestCollaboration adds the caller to a project and notifies the
// owner.
//
// POST /api/projects/{projectId}/request-collaboration
func (h *ProjectHandler) HandleRequestCollaboration(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.svc.RequestCollaboration(r.Context(), chi.URLParam(r, "projectId"), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Collaboration request sent successfully"})
}

// HandleAddCollaborator adds a user, by email, to a project.
//
// POST /api/add-collaborator
func (h *ProjectHandler) HandleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req addCollaboratorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Email = strings.TrimSpace(req.Email)
	if req.ProjectID == "" || req.Email == "" {
		writeError(w, h.logger, apperror.ValidationFailed("", "Project ID and email are required"))
		return
	}

	if err := h.svc.AddCollaborator(r.Context(), req.ProjectID, req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Collaborator added successfully."})
}
