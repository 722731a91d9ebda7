package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"authflow/internal/auth"
	"authflow/internal/metrics"
	"authflow/internal/middleware"
	"authflow/internal/models"
	"authflow/internal/repository"
	"authflow/internal/types"

	"github.com/google/uuid"
)

const minPasswordLen = 8

type AuthHandler struct {
	users   repository.UserRepository
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAuthHandler(users repository.UserRepository, tokens *auth.TokenIssuer, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:   users,
		tokens:  tokens,
		metrics: m,
		logger:  logger.With("component", "api"),
	}
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Info("login decode error", "error", err)
		h.metrics.AuthLoginsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
	if payload.Email == "" || payload.Password == "" {
		h.metrics.AuthLoginsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.logger.Info("login for unknown email", "email", payload.Email)
			h.metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login lookup failed", "error", err)
		h.metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !auth.VerifyPassword(payload.Password, user.Password_Hash) {
		h.logger.Info("invalid password", "user_id", user.ID)
		h.metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		h.logger.Error("token generation failed", "user_id", user.ID, "error", err)
		h.metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.logger.Info("login succeeded", "user_id", user.ID)
	h.metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, types.TokenResponse{AccessToken: token})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Info("register decode error", "error", err)
		h.metrics.AuthRegistrationsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))

	if msg := validateRegistration(payload); msg != "" {
		h.metrics.AuthRegistrationsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hashed, err := auth.HashPassword(payload.Password)
	if err != nil {
		h.logger.Error("hashing failed", "error", err)
		h.metrics.AuthRegistrationsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	first, last := models.SplitDisplayName(payload.Username)
	user := &models.User{
		ID:            uuid.New(),
		Username:      payload.Username,
		Email:         payload.Email,
		Password_Hash: hashed,
		FirstName:     first,
		LastName:      last,
		Status:        models.StatusActive,
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			h.metrics.AuthRegistrationsTotal.WithLabelValues("conflict").Inc()
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		h.logger.Error("create user failed", "error", err)
		h.metrics.AuthRegistrationsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		h.logger.Error("token generation failed", "user_id", user.ID, "error", err)
		h.metrics.AuthRegistrationsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "user created, but failed to start session, please login")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "client_created_at", payload.CreatedAt)
	h.metrics.AuthRegistrationsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusCreated, types.TokenResponse{AccessToken: token})
}

func validateRegistration(p types.RegisterRequest) string {
	switch {
	case p.Username == "" || p.Email == "" || p.Password == "":
		return "all fields (username, email, password) are required"
	case !isValidEmail(p.Email):
		return "invalid email format"
	case len(p.Password) < minPasswordLen:
		return "password must be at least 8 characters"
	}
	return ""
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, types.ProfileResponse{
		Profile: types.Profile{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Status:    user.Status,
		},
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}
