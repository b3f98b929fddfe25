package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// QueryGenerator is what QueryHandler needs from service.QueryService.
type QueryGenerator interface {
	Generate(ctx context.Context, title, description string) (string, error)
}

type QueryHandler struct {
	svc    QueryGenerator
	logger *slog.Logger
}

func NewQueryHandler(svc QueryGenerator, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: logger}
}

type searchQueryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SearchQueryResponse is returned by POST /api/generate-search-query.
type SearchQueryResponse struct {
	SearchQuery string `json:"searchQuery"`
}

// HandleGenerate asks the LLM for a literature search query.
//
// POST /api/generate-search-query
func (h *QueryHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req searchQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	q, err := h.svc.Generate(r.Context(), req.Title, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchQueryResponse{SearchQuery: q})
}
