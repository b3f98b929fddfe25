package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/service"
)

// AccountService is what AuthHandler needs from service.AuthService.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

type AuthHandler struct {
	svc    AccountService
	logger *slog.Logger
}

func NewAuthHandler(svc AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"apiKey"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	UserID  string `json:"userid"`
	Role    string `json:"role"`
	Token   string `json:"token"`
}

// HandleRegister creates an account.
//
// POST /api/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	_, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		APIKey:   req.APIKey,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User created successfully in backend"})
}

// HandleLogin exchanges credentials for a token.
//
// POST /api/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "User logged in successfully",
		Email:   res.User.Email,
		UserID:  res.User.ID,
		Role:    res.User.Role,
		Token:   res.Token,
	})
}
