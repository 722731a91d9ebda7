package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"authflow/internal/auth"
	"authflow/internal/models"
	"authflow/internal/repository"
	"authflow/internal/types"
)

type contextKey string

const UserKey contextKey = "user"

// TokenValidator is satisfied by *auth.TokenIssuer.
type TokenValidator interface {
	ValidateToken(token string) (*auth.CustomClaims, error)
}

// UserFromContext returns the user stored by Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(UserKey).(*models.User)
	return u, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate requires "Authorization: Bearer <jwt>" and loads the user into the request context.
func Authenticate(tokens TokenValidator, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "auth-middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				logger.Info("invalid token", "remote", r.RemoteAddr, "error", err)
				writeError(w, http.StatusUnauthorized, "session expired or invalid")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					logger.Info("token valid but user no longer exists", "user_id", claims.UserID)
					writeError(w, http.StatusUnauthorized, "user account not found")
					return
				}
				logger.Error("user lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}
