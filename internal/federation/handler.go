package federation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-id/aegis/internal/platform/httpx"
	"github.com/aegis-id/aegis/internal/shared"
)

// Handler wires the OAuth2 redirect/callback pair.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers federation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/authorize", h.authorize)
	r.Get("/callback", h.callback)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.Begin(r.Context())
	if err != nil {
		h.logger.Error("begin federation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

type pairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
	TokenType    string    `json:"token_type"`
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	pair, err := h.service.Callback(r.Context(), state, code)
	if err != nil {
		h.logger.Warn("federation callback", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessExp:    pair.AccessExp,
		RefreshExp:   pair.RefreshExp,
		TokenType:    "Bearer",
	})
}
