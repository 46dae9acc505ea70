package tokens

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/ratelimit"
)

func newTestHandler(t *testing.T, limit int64) (http.Handler, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	svc := NewService(newTestIssuer(), repo)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := ratelimit.NewLimiter(client, limit, time.Minute)

	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, limiter)
	r := chi.NewRouter()
	r.Route("/v1/tokens", h.MountRoutes)
	return r, repo
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:50000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLogin(t *testing.T) {
	handler, repo := newTestHandler(t, 10)
	repo.addAccount("alice@example.com", "s3cret-pass", true)

	rec := postJSON(t, handler, "/v1/tokens/login",
		`{"email":"alice@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	handler, repo := newTestHandler(t, 10)
	repo.addAccount("alice@example.com", "s3cret-pass", true)

	rec := postJSON(t, handler, "/v1/tokens/login",
		`{"email":"alice@example.com","password":"wrong-pass"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerLoginValidation(t *testing.T) {
	handler, _ := newTestHandler(t, 10)

	rec := postJSON(t, handler, "/v1/tokens/login", `{"email":"not-an-email","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLoginRateLimited(t *testing.T) {
	handler, repo := newTestHandler(t, 2)
	repo.addAccount("alice@example.com", "s3cret-pass", true)

	body := `{"email":"alice@example.com","password":"wrong-pass"}`
	for i := 0; i < 2; i++ {
		rec := postJSON(t, handler, "/v1/tokens/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := postJSON(t, handler, "/v1/tokens/login", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandlerRefreshAndLogout(t *testing.T) {
	handler, repo := newTestHandler(t, 10)
	repo.addAccount("alice@example.com", "s3cret-pass", true)

	rec := postJSON(t, handler, "/v1/tokens/login",
		`{"email":"alice@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var pair struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	rec = postJSON(t, handler, "/v1/tokens/refresh",
		`{"refresh_token":"`+pair.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))

	rec = postJSON(t, handler, "/v1/tokens/logout",
		`{"refresh_token":"`+rotated.RefreshToken+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = postJSON(t, handler, "/v1/tokens/refresh",
		`{"refresh_token":"`+rotated.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
