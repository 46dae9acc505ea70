package tokens

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aegis-id/aegis/internal/platform/httpx"
	"github.com/aegis-id/aegis/internal/shared"
)

// Verifier confirms an access token and yields its subject.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (Subject, error)
}

// PermissionResolver resolves a role to its effective permission names.
type PermissionResolver interface {
	ResolvePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

// Middleware wires bearer-token authentication and permission checks for
// HTTP handlers.
type Middleware struct {
	Verifier Verifier
	Resolver PermissionResolver
	Logger   *slog.Logger
	group    *singleflight.Group
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(verifier Verifier, resolver PermissionResolver, logger *slog.Logger) Middleware {
	return Middleware{
		Verifier: verifier,
		Resolver: resolver,
		Logger:   logger,
		group:    &singleflight.Group{},
	}
}

// Authenticator verifies the Authorization bearer token and stores the
// principal in the request context.
func (m Middleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		subject, err := m.Verifier.Verify(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), &shared.Principal{
			UserID: subject.UserID,
			RoleID: subject.RoleID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current principal holds at least one of the
// required permissions. Must run after Authenticator.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			granted, err := m.effectivePermissions(r.Context(), principal.RoleID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("resolve permissions", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if hasAnyPermission(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// effectivePermissions collapses concurrent lookups for the same role into
// a single store read. The shared read runs detached from any one request
// context so the first caller's cancellation cannot fail the others; each
// caller still honors its own cancellation via the select.
func (m Middleware) effectivePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	resultChan := m.group.DoChan(roleID.String(), func() (any, error) {
		return m.Resolver.ResolvePermissions(context.WithoutCancel(ctx), roleID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
