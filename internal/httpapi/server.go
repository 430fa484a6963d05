// Package httpapi wires the probe registry, test runner, diagnostics
// collector, and authenticator into a gin HTTP surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/infraguard/preflight/internal/auth"
	"github.com/infraguard/preflight/internal/diagnostics"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/infraguard/preflight/internal/ratelimit"
)

// Server holds every dependency a handler might need. It has no package-
// level counterpart; the composition root builds exactly one.
type Server struct {
	registry       *probe.Registry
	runner         *probe.Runner
	collector      *diagnostics.Collector
	authenticator  *auth.Authenticator
	loginLimiter   *ratelimit.IPLimiter
	logger         *zap.SugaredLogger
	version        string
	staticDir      string
	defaultTimeout time.Duration
}

type Deps struct {
	Registry       *probe.Registry
	Runner         *probe.Runner
	Collector      *diagnostics.Collector
	Authenticator  *auth.Authenticator
	LoginLimiter   *ratelimit.IPLimiter
	Logger         *zap.SugaredLogger
	Version        string
	StaticDir      string
	DefaultTimeout time.Duration
}

func NewServer(d Deps) *Server {
	timeout := d.DefaultTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{
		registry:       d.Registry,
		runner:         d.Runner,
		collector:      d.Collector,
		authenticator:  d.Authenticator,
		loginLimiter:   d.LoginLimiter,
		logger:         d.Logger,
		version:        d.Version,
		staticDir:      d.StaticDir,
		defaultTimeout: timeout,
	}
}

// Router builds the gin engine with every route from spec.md §6 registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(recoveryMiddleware(func(v interface{}) { s.logger.Errorw("panic recovered", "value", v) }))
	r.Use(loggingMiddleware())
	r.Use(securityHeadersMiddleware())
	r.Use(corsMiddleware())

	r.GET("/health/live", s.handleLive)
	r.GET("/health/ready", s.handleReady)
	r.GET("/version", s.handleVersion)

	r.GET("/login", s.handleLoginPage)
	r.POST("/login", loginRateLimitMiddleware(s.loginLimiter), s.handleLoginForm)
	r.POST("/token", loginRateLimitMiddleware(s.loginLimiter), s.handleToken)

	r.StaticFS("/static", http.Dir(s.staticDir))

	authed := r.Group("/")
	authed.Use(authMiddleware(s.authenticator))
	{
		authed.GET("/", s.handleDashboard)
		authed.POST("/logout", s.handleLogout)

		authed.GET("/api/tests/status", s.handleTestsStatus)
		authed.GET("/api/tests/registry", s.handleTestsRegistry)
		authed.POST("/api/tests/run-all", s.handleRunAll)
		authed.POST("/api/tests/dns/resolve", s.handleDNSResolve)
		authed.POST("/api/tests/ssl/check", s.handleSSLCheck)
		authed.POST("/api/tests/:probe_id", s.handleRunOne)

		authed.POST("/api/diagnostics/collect", s.handleDiagnosticsCollect)
		authed.GET("/api/diagnostics/status", s.handleDiagnosticsStatus)
		authed.GET("/api/diagnostics/download", s.handleDiagnosticsDownload)
	}

	return r
}
