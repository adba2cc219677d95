package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/shared"
)

// DefaultLanding is where a fresh login goes when no return-to is stored.
const DefaultLanding = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Principal  *Principal `json:"principal"`
	RedirectTo string     `json:"redirect_to"`
	CSRFToken  string     `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	previousID, previousUser := sess.ID, sess.User()
	h.sessionManager.Renew(sess)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	ref := SessionRef{ID: sess.ID, ExpiresAt: expiresAt}
	principal, err := h.service.Login(r.Context(), ref, form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		case errors.Is(err, shared.ErrUnknownRole):
			httpx.RespondError(w, err)
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}

	if previousUser != "" {
		if err := h.service.Logout(r.Context(), previousID); err != nil {
			h.logger.Warn("drop previous session", slog.Any("error", err))
		}
	}
	sess.SetUser(principal.ID, expiresAt)
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	redirect := sess.PopReturnTo()
	if redirect == "" {
		redirect = DefaultLanding
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Principal: principal, RedirectTo: redirect, CSRFToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), sess.ID); err != nil {
			h.logger.Warn("logout", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
