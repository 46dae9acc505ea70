package httpx

import (
	"errors"
	"net/http"

	"github.com/aegis-id/aegis/internal/shared"
)

// RespondError maps shared domain errors to HTTP responses using RFC7807.
// Unauthorized and rejected conditions deliberately carry no detail so the
// boundary never confirms whether an account, token or password was the
// failing part.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalid):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrRejected):
		Problem(w, http.StatusBadRequest, "Rejected", "")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrFederationFailed):
		Problem(w, http.StatusBadGateway, "Federation Failed", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
