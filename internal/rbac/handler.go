package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
)

// Handler wires HTTP endpoints for role and permission management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoleRoutes registers role CRUD and grant management routes.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "read"))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}", h.getRole)
		r.Get("/{roleID}/permissions", h.listRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "write"))
		r.Post("/", h.createRole)
		r.Put("/{roleID}", h.updateRole)
		r.Post("/{roleID}/permissions", h.assignPermission)
		r.Delete("/{roleID}/permissions/{permissionID}", h.revokePermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "delete"))
		r.Delete("/{roleID}", h.deleteRole)
	})
}

// MountPermissionRoutes registers permission catalog routes.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "read"))
		r.Get("/", h.listPermissions)
		r.Get("/{permissionID}", h.getPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "write"))
		r.Post("/", h.createPermission)
		r.Patch("/{permissionID}", h.updatePermissionDescription)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("role", "delete"))
		r.Delete("/{permissionID}", h.deletePermission)
	})
}

// MountUserGrantRoutes registers role assignment and effective permission
// routes for users. Mounted alongside the account routes under /users.
func (h *Handler) MountUserGrantRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("user", "read"))
		r.Get("/{userID}/roles", h.listUserRoles)
		r.Get("/{userID}/permissions", h.listUserPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission("user", "write"))
		r.Post("/{userID}/roles", h.assignRole)
		r.Delete("/{userID}/roles/{roleID}", h.revokeRole)
	})
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type permissionResponse struct {
	ID          int64     `json:"id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func toPermissionResponse(perm Permission) permissionResponse {
	return permissionResponse{
		ID:          perm.ID,
		Resource:    perm.Resource,
		Action:      perm.Action,
		Code:        perm.Code(),
		Description: perm.Description,
		CreatedAt:   perm.CreatedAt,
	}
}

func toRoleResponses(roles []Role) []roleResponse {
	out := make([]roleResponse, len(roles))
	for i, r := range roles {
		out[i] = toRoleResponse(r)
	}
	return out
}

func toPermissionResponses(perms []Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = toPermissionResponse(p)
	}
	return out
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

type updateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

type createPermissionRequest struct {
	Resource    string `json:"resource" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

type updatePermissionRequest struct {
	Description string `json:"description" validate:"max=255"`
}

type assignPermissionRequest struct {
	PermissionID int64 `json:"permission_id" validate:"required,gt=0"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": toRoleResponses(roles)})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req updateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	perms, err := h.service.PermissionsOfRole(r.Context(), id)
	if err != nil {
		h.fail(w, "list role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": toPermissionResponses(perms)})
}

func (h *Handler) assignPermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req assignPermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignPermissionToRole(r.Context(), roleID, req.PermissionID); err != nil {
		h.fail(w, "assign permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.RevokePermissionFromRole(r.Context(), roleID, permissionID); err != nil {
		h.fail(w, "revoke permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": toPermissionResponses(perms)})
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		h.fail(w, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponse(perm))
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		h.fail(w, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPermissionResponse(perm))
}

func (h *Handler) updatePermissionDescription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	var req updatePermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.UpdatePermissionDescription(r.Context(), id, req.Description)
	if err != nil {
		h.fail(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponse(perm))
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, "delete permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	roles, err := h.service.RolesOfUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "list user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": toRoleResponses(roles)})
}

func (h *Handler) listUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	perms, err := h.service.EffectivePermissionsOfUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "list user permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": toPermissionResponses(perms)})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignRoleToUser(r.Context(), userID, req.RoleID); err != nil {
		h.fail(w, "assign role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RevokeRoleFromUser(r.Context(), userID, roleID); err != nil {
		h.fail(w, "revoke role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+param)
		return 0, false
	}
	return id, true
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
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
