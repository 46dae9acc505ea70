package users

import (
	"errors"
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

// Handler wires HTTP endpoints for the user directory.
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

// MountRoutes registers user routes on the provided router. Registration
// is open; everything else requires a permission. Password change only
// requires a verified identity since the current password is re-checked.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)

	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Use(h.authz.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.list)
		r.Get("/count", h.count)
		r.Get("/{id}", h.get)
		r.Get("/{id}/role", h.getWithRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Use(h.authz.RequireAny(shared.PermUsersEdit))
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Use(h.authz.RequireAny(shared.PermUsersManageRoles))
		r.Put("/{id}/role/{roleID}", h.changeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Authenticator)
		r.Post("/me/password", h.changePassword)
	})
}

type userPayload struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	RoleID    uuid.UUID `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userWithRolePayload struct {
	userPayload
	RoleName        string `json:"role_name"`
	RoleDescription string `json:"role_description"`
}

func toPayload(u User) userPayload {
	return userPayload{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		RoleID:    u.RoleID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toRolePayload(u UserWithRole) userWithRolePayload {
	return userWithRolePayload{
		userPayload:     toPayload(u.User),
		RoleName:        u.RoleName,
		RoleDescription: u.RoleDescription,
	}
}

type createRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" validate:"max=128"`
}

type updateRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	IsActive  *bool   `json:"is_active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
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
	user, err := h.service.Create(r.Context(), CreateUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logger.Warn("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPayload(user))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(user))
}

func (h *Handler) getWithRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.GetWithRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRolePayload(user))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]userPayload, len(list))
	for i, u := range list {
		payload[i] = toPayload(u)
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.logger.Error("count users", slog.Any("error", err))
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
	user, err := h.service.Update(r.Context(), id, UpdateUser{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(user))
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

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := parseID(w, r, "roleID")
	if !ok {
		return
	}
	user, err := h.service.ChangeRole(r.Context(), userID, roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRolePayload(user))
}

// changePassword rotates the authenticated user's own credential. The
// response never distinguishes a wrong current password from a missing
// account.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.ErrRejected
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(user))
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
