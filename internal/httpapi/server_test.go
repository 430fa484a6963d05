package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infraguard/preflight/internal/auth"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/diagnostics"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/infraguard/preflight/internal/ratelimit"
)

func newTestServer(t *testing.T) (*Server, *auth.Authenticator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	authenticator := auth.New(config.AuthConfig{
		Username:     "operator",
		PasswordHash: hash,
		SecretKey:    "test-secret-key-at-least-32-bytes!",
		TokenTTL:     time.Minute,
	})

	registry := probe.NewRegistry()
	runner := probe.NewRunner(4, zap.NewNop().Sugar())
	collector := diagnostics.NewCollector(config.DiagnosticsConfig{OutputDir: t.TempDir(), DefaultSince: time.Hour}, zap.NewNop().Sugar())

	s := NewServer(Deps{
		Registry:      registry,
		Runner:        runner,
		Collector:     collector,
		Authenticator: authenticator,
		LoginLimiter:  ratelimit.New(),
		Logger:        zap.NewNop().Sugar(),
		Version:       "test",
		StaticDir:     t.TempDir(),
	})
	return s, authenticator
}

func TestHealthEndpointsRequireNoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	for _, path := range []string{"/health/live", "/health/ready", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestProtectedEndpointRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/tests/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedEndpointAcceptsBearerToken(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()

	token, _, err := authenticator.IssueToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tests/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"username":"operator","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenEndpointIssuesTokenForValidCredentials(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"username":"operator","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")
}

func TestDNSResolveRejectsInvalidHostname(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()
	token, _, _ := authenticator.IssueToken()

	req := httptest.NewRequest(http.MethodPost, "/api/tests/dns/resolve", strings.NewReader(`{"hostname":"not a hostname!"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSSLCheckRejectsPortZero(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()
	token, _, _ := authenticator.IssueToken()

	req := httptest.NewRequest(http.MethodPost, "/api/tests/ssl/check", strings.NewReader(`{"hostname":"example.com","port":0}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSSLCheckRejectsPortAboveRange(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()
	token, _, _ := authenticator.IssueToken()

	req := httptest.NewRequest(http.MethodPost, "/api/tests/ssl/check", strings.NewReader(`{"hostname":"example.com","port":65536}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRunOneRejectsUnknownProbeID(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()
	token, _, _ := authenticator.IssueToken()

	req := httptest.NewRequest(http.MethodPost, "/api/tests/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiagnosticsDownloadNotFoundWhenNoArtifact(t *testing.T) {
	s, authenticator := newTestServer(t)
	router := s.Router()
	token, _, _ := authenticator.IssueToken()

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
