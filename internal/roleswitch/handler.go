package roleswitch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/rbac"
	"github.com/eventreg/eventreg/internal/shared"
)

// Lister lists open registrar access requests.
type Lister interface {
	ListPending(ctx context.Context) ([]Request, error)
}

// Handler exposes the role-switch protocol over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lister    Lister
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lister Lister, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, lister: lister, rbac: rbacMW, validator: validator.New()}
}

// MountSelfRoutes registers the subject-side endpoints.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Post("/request", h.requestElevation)
	r.Post("/toggle", h.toggle)
}

// MountAdminRoutes registers the admin decision endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.rbac.RequireAction(rbac.ActionRoleRequestsView)).Get("/", h.listPending)
	r.With(h.rbac.RequireAction(rbac.ActionRoleRequestApprove)).Post("/{userID}/approve", h.approve)
	r.With(h.rbac.RequireAction(rbac.ActionRoleRequestReject)).Post("/{userID}/reject", h.reject)
	r.With(h.rbac.RequireAction(rbac.ActionRoleSwitchRevoke)).Post("/{userID}/revoke", h.revoke)
}

type switchResponse struct {
	Principal     *auth.Principal `json:"principal"`
	EffectiveRole string          `json:"effective_role"`
	State         State           `json:"state"`
}

type rejectForm struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) requestElevation(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.RequestElevation(r.Context(), sessionID(r))
	h.respondSwitch(w, p, err)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Toggle(r.Context(), sessionID(r))
	h.respondSwitch(w, p, err)
}

func (h *Handler) respondSwitch(w http.ResponseWriter, p *auth.Principal, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, switchResponse{Principal: p, EffectiveRole: string(p.EffectiveRole()), State: StateOf(p)})
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		httpx.JSON(w, http.StatusOK, []Request{})
		return
	}
	requests, err := h.lister.ListPending(r.Context())
	if err != nil {
		h.logger.Error("list role requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if requests == nil {
		requests = []Request{}
	}
	httpx.JSON(w, http.StatusOK, requests)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	admin := auth.PrincipalFromContext(r.Context())
	h.respondDecision(w, h.service.Approve(r.Context(), admin, chi.URLParam(r, "userID")))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var form rejectForm
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
			return
		}
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	admin := auth.PrincipalFromContext(r.Context())
	h.respondDecision(w, h.service.Reject(r.Context(), admin, chi.URLParam(r, "userID"), form.Reason))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	admin := auth.PrincipalFromContext(r.Context())
	h.respondDecision(w, h.service.Revoke(r.Context(), admin, chi.URLParam(r, "userID")))
}

func (h *Handler) respondDecision(w http.ResponseWriter, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionID(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return ""
}
