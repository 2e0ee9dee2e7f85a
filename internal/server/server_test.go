package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, origins []string, routes func(*gin.Engine)) *server.Server {
	t.Helper()
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, CORSOrigins: origins}
	return server.New(cfg, false, logger.NewNop(), routes)
}

func serve(s *server.Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestNew_Addr(t *testing.T) {
	s := newServer(t, nil, nil)
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newServer(t, nil, func(r *gin.Engine) {
		r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	var fromCtx logger.Logger
	s := newServer(t, nil, func(r *gin.Engine) {
		r.GET("/test", func(c *gin.Context) {
			fromCtx = logger.FromContext(c.Request.Context())
			c.Status(http.StatusOK)
		})
	})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
	assert.Len(t, w.Header().Get(server.RequestIDHeader), 36)
	assert.NotNil(t, fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(server.RequestIDHeader, "upstream-123")
	w = serve(s, req)
	assert.Equal(t, "upstream-123", w.Header().Get(server.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(server.RequestIDHeader, strings.Repeat("x", 200))
	w = serve(s, req)
	assert.Len(t, w.Header().Get(server.RequestIDHeader), 36)
}

func TestCORSMiddleware(t *testing.T) {
	routes := func(r *gin.Engine) {
		r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	t.Run("wildcard", func(t *testing.T) {
		s := newServer(t, []string{"*"}, routes)
		req := httptest.NewRequest(http.MethodGet, "/api/x", http.NoBody)
		req.Header.Set("Origin", "https://review.example")
		w := serve(s, req)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		s := newServer(t, []string{"https://review.example"}, routes)
		req := httptest.NewRequest(http.MethodGet, "/api/x", http.NoBody)
		req.Header.Set("Origin", "https://review.example")
		w := serve(s, req)
		assert.Equal(t, "https://review.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		s := newServer(t, []string{"https://review.example"}, routes)
		req := httptest.NewRequest(http.MethodGet, "/api/x", http.NoBody)
		req.Header.Set("Origin", "https://evil.example")
		w := serve(s, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		s := newServer(t, nil, routes)
		req := httptest.NewRequest(http.MethodOptions, "/api/x", http.NoBody)
		req.Header.Set("Origin", "https://review.example")
		w := serve(s, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthRoutes(t *testing.T) {
	healthy := newServer(t, nil, func(r *gin.Engine) {
		server.RegisterHealthRoutes(r, "muniwatch", "1.0.0", fakePinger{})
	})

	w := serve(healthy, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = serve(healthy, httptest.NewRequest(http.MethodHead, "/health", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(healthy, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	down := newServer(t, nil, func(r *gin.Engine) {
		server.RegisterHealthRoutes(r, "muniwatch", "1.0.0", fakePinger{err: errors.New("connection refused")})
	})
	w = serve(down, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	s := server.New(cfg, false, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
