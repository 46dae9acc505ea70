package roles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/platform/httpx"
	"github.com/aegis-id/aegis/internal/shared"
	"github.com/aegis-id/aegis/internal/tokens"
)

// Handler wires HTTP endpoints for the role registry.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     tokens.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz tokens.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authz,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Use(h.authz.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.list)
		r.Get("/count", h.count)
		r.Get("/{id}", h.get)
		r.Get("/{id}/permissions", h.getWithPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Use(h.authz.RequireAny(shared.PermRolesEdit))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/permissions/{permissionID}", h.bind)
		r.Delete("/{id}/permissions/{permissionID}", h.unbind)
	})
}

type rolePayload struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type boundPermissionPayload struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type roleWithPermissionsPayload struct {
	rolePayload
	Permissions []boundPermissionPayload `json:"permissions"`
}

func toPayload(role Role) rolePayload {
	return rolePayload{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

type createRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=512"`
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Create(r.Context(), CreateRole{Name: req.Name, Description: req.Description})
	if err != nil {
		h.logger.Warn("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPayload(role))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(role))
}

func (h *Handler) getWithPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetWithPermissions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payload := roleWithPermissionsPayload{
		rolePayload: toPayload(role.Role),
		Permissions: make([]boundPermissionPayload, len(role.Permissions)),
	}
	for i, p := range role.Permissions {
		payload.Permissions[i] = boundPermissionPayload{ID: p.ID, Name: p.Name, Description: p.Description}
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]rolePayload, len(roles))
	for i, role := range roles {
		payload[i] = toPayload(role)
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.logger.Error("count roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Update(r.Context(), id, UpdateRole{Name: req.Name, Description: req.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(role))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	permissionID, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.Bind(r.Context(), roleID, permissionID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unbind(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	permissionID, ok := parseID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.Unbind(r.Context(), roleID, permissionID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
