package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/middleware"
	"mouralws/internal/pkg/token"
)

func echoActor(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	json.NewEncoder(w).Encode(actor)
}

func TestAuthMiddleware(t *testing.T) {
	tokens := token.NewService("segredo", time.Hour)
	auth := middleware.NewAuthMiddleware(tokens)
	h := auth(echoActor)

	t.Run("sem header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/v1/counts", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body domain.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "UNAUTHORIZED", body.Category)
	})

	t.Run("token inválido", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/counts", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token válido anexa o ator", func(t *testing.T) {
		tok, err := tokens.GenerateToken(token.Subject{UserID: "u-1", CompanyID: "co-1", Role: "operator"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/counts", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var actor domain.Actor
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&actor))
		assert.Equal(t, domain.Actor{UserID: "u-1", CompanyID: "co-1", Role: domain.RoleOperator}, actor)
	})

	t.Run("papel desconhecido", func(t *testing.T) {
		tok, err := tokens.GenerateToken(token.Subject{UserID: "u-1", CompanyID: "co-1", Role: "root"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/counts", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPermissionMiddleware(t *testing.T) {
	h := middleware.PermissionMiddleware(domain.RoleAdmin)(echoActor)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/v1/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/users", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), domain.Actor{UserID: "u", CompanyID: "c", Role: domain.RoleOperator}))
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(middleware.WithActor(req.Context(), domain.Actor{UserID: "u", CompanyID: "c", Role: domain.RoleAdmin}))
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	limited := middleware.RateLimiter(client, 2, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec
	}

	first := do("10.0.0.1:5000")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:5001").Code)

	blocked := do("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))

	// outro IP tem contador próprio
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:5000").Code)

	// janela expirada libera o IP
	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:5003").Code)
}

func TestRateLimiter_WindowStartOnlySetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	limited := middleware.RateLimiter(client, 5, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// outra instância conta uma requisição do mesmo IP enquanto esta é atendida
		mr.Incr("rate-limit:10.0.0.9", 1)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	limited.ServeHTTP(httptest.NewRecorder(), req)

	got, err := mr.Get("rate-limit:10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, time.Minute, mr.TTL("rate-limit:10.0.0.9"))
}

func TestRateLimiter_FailOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()

	limited := middleware.RateLimiter(client, 1, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
