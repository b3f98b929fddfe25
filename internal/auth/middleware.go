package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
)

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Role   string
}

// UserLookup loads the account behind a token subject.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth rejects requests without a valid bearer token with 401 before
// the handler runs. On success the Principal is stored in the context; the
// role is read from the user row on every request.
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "No token provided")
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			// A token can outlive its user; treat that as an invalid token.
			// Any other lookup failure is ours, not the client's.
			user, err := users.GetByID(r.Context(), userID)
			if errors.Is(err, apperror.ErrNotFound) {
				logger.Warn("token subject no longer exists", slog.String("userID", userID))
				unauthorized(w, "Invalid token")
				return
			}
			if err != nil {
				logger.Error("failed to load token subject",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
				internalError(w)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: user.ID, Role: user.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}

// UserIDFromContext extracts the authenticated user's ID from the context.
// Returns ("", false) if the request is not authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

func internalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}`))
}
