package container_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linkguard/internal/auth"
	"github.com/serroba/linkguard/internal/container"
	"github.com/serroba/linkguard/internal/events"
	"github.com/serroba/linkguard/internal/messaging"
	"github.com/serroba/linkguard/internal/ratelimit"
	"github.com/serroba/linkguard/internal/urlguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localOptions() *container.Options {
	return &container.Options{
		Port:                8888,
		BaseURL:             "https://sho.rt",
		CodeLength:          8,
		LogFormat:           "console",
		Store:               "memory",
		RateLimitStore:      "memory",
		PolicyMode:          "enforce",
		Denylist:            "evil.example",
		RiskySuffixes:       ".zip,.mov",
		SuspiciousKeywords:  "login,secure",
		ReputationTimeoutMs: 2500,
		ReputationCacheSize: 100,
		ReputationCacheTTL:  60,
		JWTSecret:           "test-secret",
	}
}

func TestGuardConfig(t *testing.T) {
	t.Run("parses lists and mode", func(t *testing.T) {
		opts := localOptions()
		opts.PolicyMode = "review-only"
		opts.Allowlist = " Example.com , docs.example.com,"

		cfg, err := opts.GuardConfig()

		require.NoError(t, err)
		assert.Equal(t, urlguard.ModeReviewOnly, cfg.Mode)
		assert.Equal(t, []string{"example.com", "docs.example.com"}, cfg.Allowlist)
		assert.Equal(t, []string{"evil.example"}, cfg.Denylist)
		assert.Equal(t, 2500*time.Millisecond, cfg.ReputationTimeout)
		assert.False(t, cfg.ReputationEnabled())
	})

	t.Run("rejects unknown modes", func(t *testing.T) {
		opts := localOptions()
		opts.PolicyMode = "paranoid"

		_, err := opts.GuardConfig()

		assert.ErrorIs(t, err, urlguard.ErrUnknownMode)
	})
}

func TestServerPackages(t *testing.T) {
	opts := localOptions()
	injector := do.New()
	container.ServerPackages(injector, opts)
	t.Cleanup(func() { _ = injector.Shutdown() })

	router := do.MustInvoke[*chi.Mux](injector)
	_ = do.MustInvoke[huma.API](injector)

	token, err := auth.NewJWTVerifier(opts.JWTSecret, nil).
		Sign(auth.Principal{ID: 5, Email: "dev@example.com"}, time.Hour)
	require.NoError(t, err)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	created := serve(http.MethodPost, "/links", `{"real_url":"https://example.com/welcome","code":"welcome"}`)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.Equal(t, "https://sho.rt/u/welcome", created.Header().Get("Location"))

	blocked := serve(http.MethodPost, "/links", `{"real_url":"https://evil.example"}`)
	assert.Equal(t, http.StatusBadRequest, blocked.Code)

	redirect := serve(http.MethodGet, "/u/welcome", "")
	assert.Equal(t, http.StatusFound, redirect.Code)
	assert.Equal(t, "https://example.com/welcome", redirect.Header().Get("Location"))

	healthz := serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, healthz.Code)
	assert.Contains(t, healthz.Body.String(), `"status":"ok"`)

	metrics := serve(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "linkguard_guard_decisions_total")
}

func TestServerPackagesWithRedis(t *testing.T) {
	opts := localOptions()
	opts.RedisAddr = "127.0.0.1:1"
	opts.RateLimitStore = "redis"
	opts.EventsEnabled = true
	opts.SafeBrowsingKey = "test-key"

	injector := do.New()
	container.ServerPackages(injector, opts)
	container.ConsumerGroupPackage(injector)

	_, err := do.Invoke[*ratelimit.PolicyLimiter](injector)
	require.NoError(t, err)

	_, err = do.Invoke[events.Publishers](injector)
	require.NoError(t, err)

	_, err = do.Invoke[*messaging.ConsumerGroup](injector)
	require.NoError(t, err)

	router := do.MustInvoke[*chi.Mux](injector)
	_ = do.MustInvoke[huma.API](injector)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), `"redis":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"reputation":"healthy"`)

	client := do.MustInvoke[*container.RedisClient](injector)
	require.NoError(t, injector.Shutdown())
	assert.Error(t, client.Client.Ping(t.Context()).Err())
}
