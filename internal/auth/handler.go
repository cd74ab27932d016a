package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/users"
)

// Handler wires the authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	accounts  *users.Service
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	validator *validator.Validate
	rbac      rbac.Middleware

	// LoginLimiter optionally throttles the login route beyond the global
	// rate limit.
	LoginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, accounts *users.Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		accounts:  accounts,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
		rbac:      mw,
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	if h.LoginLimiter != nil {
		r.With(h.LoginLimiter).Post("/login", h.login)
	} else {
		r.Post("/login", h.login)
	}
	r.Post("/logout", h.logout)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Get("/me", h.me)
		r.Post("/password", h.changePassword)
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=128"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type principalResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func toPrincipalResponse(p *rbac.Principal) principalResponse {
	return principalResponse{
		ID:          p.UserID,
		Username:    p.Username,
		Roles:       p.RoleNames(),
		Permissions: p.PermissionCodes(),
	}
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.fail(w, "issue csrf token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "session unavailable")
		return
	}
	sess.Authenticate(strconv.FormatInt(principal.UserID, 10), principal.Fingerprint)
	h.service.RegisterSession(r.Context(), sess.ID, principal.UserID, h.sessions.TTL())
	httpx.JSON(w, http.StatusOK, toPrincipalResponse(principal))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.RemoveSession(r.Context(), sess.ID)
		sess.Clear()
		h.sessions.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, toPrincipalResponse(principal))
}

// changePassword rotates the caller's own credential. The current session is
// rebound to the new fingerprint; every other session of the user stops
// resolving on its next request.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, "change password", err)
		return
	}
	refreshed, err := h.service.PrincipalByID(r.Context(), principal.UserID)
	if err != nil {
		h.fail(w, "refresh principal", err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Authenticate(strconv.FormatInt(refreshed.UserID, 10), refreshed.Fingerprint)
	}
	httpx.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
