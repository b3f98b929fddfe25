package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/service"
)

// DocumentGenerator is what DocumentHandler needs from service.DocumentService.
type DocumentGenerator interface {
	Generate(ctx context.Context, actorID string, in service.GenerateInput) (*model.Document, error)
}

type DocumentHandler struct {
	svc    DocumentGenerator
	logger *slog.Logger
}

func NewDocumentHandler(svc DocumentGenerator, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

type generateDocumentRequest struct {
	ProjectID        string     `json:"projectId"`
	NumberOfArticles countField `json:"numberOfArticles"`
	SearchQuery      queryField `json:"searchQuery"`
	GPTKey           string     `json:"gptKey"`
	UserEmail        string     `json:"userEmail"`
}

// GenerateDocumentResponse is returned by POST /api/generate-document.
type GenerateDocumentResponse struct {
	Message  string `json:"message"`
	FileLink string `json:"fileLink"`
}

// HandleGenerate runs a literature search, uploads the table of evidence and
// links it to the project. It can take as long as the literature service
// does; the server write timeout is sized for it.
//
// POST /api/generate-document
func (h *DocumentHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req generateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.svc.Generate(r.Context(), userID, service.GenerateInput{
		ProjectID:        req.ProjectID,
		NumberOfArticles: int(req.NumberOfArticles),
		SearchQuery:      string(req.SearchQuery),
		GPTKey:           req.GPTKey,
		UserEmail:        req.UserEmail,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateDocumentResponse{
		Message:  "Document generated and saved successfully",
		FileLink: doc.Link,
	})
}
