package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/infraguard/preflight/internal/apierror"
	"github.com/infraguard/preflight/internal/diagnostics"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/infraguard/preflight/internal/probes"
)

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.version})
}

func (s *Server) handleLoginPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, loginPageHTML)
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (s *Server) handleLoginForm(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, apierror.Validation("missing username or password"))
		return
	}
	if err := s.authenticator.Verify(req.Username, req.Password); err != nil {
		abortWithError(c, apierror.Auth(""))
		return
	}
	token, expiresAt, err := s.authenticator.IssueToken()
	if err != nil {
		abortWithError(c, apierror.Internal())
		return
	}
	c.SetCookie("auth_token", token, int(time.Until(expiresAt).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleToken(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, apierror.Validation("missing username or password"))
		return
	}
	if err := s.authenticator.Verify(req.Username, req.Password); err != nil {
		abortWithError(c, apierror.Auth(""))
		return
	}
	token, expiresAt, err := s.authenticator.IssueToken()
	if err != nil {
		abortWithError(c, apierror.Internal())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(time.Until(expiresAt).Seconds()),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardPageHTML)
}

// handleTestsStatus merges the runner's "ever run" snapshot with the full
// registry so never-run probes appear too, rather than being silently
// absent from the map.
func (s *Server) handleTestsStatus(c *gin.Context) {
	snapshot := s.runner.Status()
	out := make(map[string]gin.H, len(s.registry.All()))
	for _, p := range s.registry.All() {
		entry, ran := snapshot[p.ID()]
		if !ran {
			out[p.ID()] = gin.H{"status": "not_run", "message": ""}
			continue
		}
		out[p.ID()] = gin.H{
			"status":   entry.Status,
			"last_run": entry.FinishedAt,
			"message":  entry.Message,
		}
	}
	c.JSON(http.StatusOK, out)
}

// handleTestsRegistry is a supplemented endpoint (SPEC_FULL.md) exposing
// the registry's display metadata for the dashboard's probe list/stepper.
func (s *Server) handleTestsRegistry(c *gin.Context) {
	type entry struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Configured  bool   `json:"configured"`
	}
	out := make([]entry, 0, len(s.registry.All()))
	for _, p := range s.registry.All() {
		out = append(out, entry{ID: p.ID(), DisplayName: p.DisplayName(), Configured: p.IsConfigured()})
	}
	c.JSON(http.StatusOK, gin.H{"probes": out})
}

type runProbeRequest struct {
	Timeout int `json:"timeout"`
}

func (s *Server) handleRunOne(c *gin.Context) {
	probeID := c.Param("probe_id")
	p, ok := s.registry.Get(probeID)
	if !ok {
		abortWithError(c, apierror.NotFound("unknown probe id: "+probeID))
		return
	}

	var req runProbeRequest
	_ = c.ShouldBindJSON(&req)
	timeout := s.defaultTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}

	result := s.runner.Run(c.Request.Context(), p, timeout)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRunAll(c *gin.Context) {
	var req runProbeRequest
	_ = c.ShouldBindJSON(&req)
	timeout := s.defaultTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}

	results := s.runner.RunAll(c.Request.Context(), s.registry, timeout)

	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case probe.StatusPassed:
			passed++
		case probe.StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	overall := "passed"
	if failed > 0 {
		overall = "failed"
	}
	c.JSON(http.StatusOK, gin.H{
		"results":        results,
		"passed_count":   passed,
		"failed_count":   failed,
		"skipped_count":  skipped,
		"overall_status": overall,
	})
}

type dnsResolveRequest struct {
	Hostname string `json:"hostname" binding:"required"`
}

func (s *Server) handleDNSResolve(c *gin.Context) {
	var req dnsResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validHostname(req.Hostname) {
		abortWithError(c, apierror.Validation("hostname must be alphanumeric with dots/hyphens, max 253 chars"))
		return
	}
	record, err := probes.ResolveHostname(c.Request.Context(), "8.8.8.8:53", req.Hostname)
	if err != nil {
		abortWithError(c, apierror.Validation("resolution failed: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, record)
}

type sslCheckRequest struct {
	Hostname string `json:"hostname" binding:"required"`
	Port     *int   `json:"port"`
}

func (s *Server) handleSSLCheck(c *gin.Context) {
	var req sslCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validHostname(req.Hostname) {
		abortWithError(c, apierror.Validation("hostname must be alphanumeric with dots/hyphens, max 253 chars"))
		return
	}
	port := 443
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			abortWithError(c, apierror.Validation("port must be between 1 and 65535"))
			return
		}
		port = *req.Port
	}
	target := "https://" + req.Hostname
	if port != 443 {
		target = "https://" + req.Hostname + ":" + strconv.Itoa(port)
	}
	record, err := probes.CheckTLS(c.Request.Context(), target)
	if err != nil {
		abortWithError(c, apierror.Validation("TLS check failed: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, record)
}

type diagnosticsCollectRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	Since     int    `json:"since"`
}

func (s *Server) handleDiagnosticsCollect(c *gin.Context) {
	var req diagnosticsCollectRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validNamespace(req.Namespace) {
		abortWithError(c, apierror.Validation("namespace must be a valid Kubernetes DNS-1123 label or subdomain"))
		return
	}
	since := time.Duration(req.Since) * time.Second

	if err := s.collector.Collect(req.Namespace, since); err != nil {
		abortWithError(c, apierror.Conflict(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (s *Server) handleDiagnosticsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.collector.Status())
}

func (s *Server) handleDiagnosticsDownload(c *gin.Context) {
	job := s.collector.Status()
	if job.State != diagnostics.StateReady || job.ArtifactPath == "" {
		abortWithError(c, apierror.NotFound("no diagnostics artifact ready"))
		return
	}
	if _, err := os.Stat(job.ArtifactPath); err != nil {
		abortWithError(c, apierror.NotFound("no diagnostics artifact ready"))
		return
	}
	c.FileAttachment(job.ArtifactPath, "diagnostics.tar.gz")
}
