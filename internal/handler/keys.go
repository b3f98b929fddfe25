package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
)

// KeyManager is what KeyHandler needs from service.KeyService.
type KeyManager interface {
	PubMedKey(ctx context.Context, userID string) (string, error)
	UpdatePubMedKey(ctx context.Context, userID, key string) error
	GPTKey(ctx context.Context) (*model.GPTKey, error)
	SetGPTKey(ctx context.Context, userID, key string) (*model.GPTKey, error)
	UpdateGPTKey(ctx context.Context, userID, key string) (*model.GPTKey, error)
}

type KeyHandler struct {
	svc    KeyManager
	logger *slog.Logger
}

func NewKeyHandler(svc KeyManager, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{svc: svc, logger: logger}
}

// KeyResponse is returned by the key GET endpoints.
type KeyResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

type keyRequest struct {
	Key string `json:"key"`
}

// HandleGetPubMedKey returns the caller's PubMed key.
//
// GET /api/pubmed-key
func (h *KeyHandler) HandleGetPubMedKey(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	key, err := h.svc.PubMedKey(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{Message: "PubMed Key Fetched!", Key: key})
}

// HandleUpdatePubMedKey replaces the caller's PubMed key.
//
// PUT /api/pubmed-key
func (h *KeyHandler) HandleUpdatePubMedKey(w http.ResponseWriter, r *http.Request) {
	userID, key, err := h.readKey(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.svc.UpdatePubMedKey(r.Context(), userID, key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "PubMed key updated successfully"})
}

// HandleGetGPTKey returns the shared GPT key.
//
// GET /api/gpt-key
func (h *KeyHandler) HandleGetGPTKey(w http.ResponseWriter, r *http.Request) {
	k, err := h.svc.GPTKey(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{Message: "GPT Key Fetched!", Key: k.Key})
}

// HandleSetGPTKey stores the shared GPT key, replacing any previous one.
//
// POST /api/gpt-key
func (h *KeyHandler) HandleSetGPTKey(w http.ResponseWriter, r *http.Request) {
	userID, key, err := h.readKey(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.svc.SetGPTKey(r.Context(), userID, key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "GPT key added successfully"})
}

// HandleUpdateGPTKey updates the shared GPT key. 404 if it was never set.
//
// PUT /api/gpt-key
func (h *KeyHandler) HandleUpdateGPTKey(w http.ResponseWriter, r *http.Request) {
	userID, key, err := h.readKey(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.svc.UpdateGPTKey(r.Context(), userID, key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "GPT key updated successfully"})
}

// readKey returns the caller and the non-empty key from the body.
func (h *KeyHandler) readKey(w http.ResponseWriter, r *http.Request) (string, string, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return "", "", err
	}

	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", "", err
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return "", "", apperror.ValidationFailed("key", "Key is required")
	}
	return userID, key, nil
}
