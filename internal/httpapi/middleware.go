package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/infraguard/preflight/internal/apierror"
	"github.com/infraguard/preflight/internal/auth"
	"github.com/infraguard/preflight/internal/ratelimit"
)

const claimsKey = "claims"

// authMiddleware requires a valid bearer token (Authorization header or the
// auth_token cookie) and stashes its claims in the gin context.
func authMiddleware(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortWithError(c, apierror.Auth(""))
			return
		}
		claims, err := authenticator.ValidateToken(token)
		if err != nil {
			abortWithError(c, apierror.Auth(""))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

// loginRateLimitMiddleware enforces the per-IP login attempt cap ahead of
// the login/token handlers.
func loginRateLimitMiddleware(limiter *ratelimit.IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			abortWithError(c, apierror.RateLimited(""))
			return
		}
		c.Next()
	}
}

// securityHeadersMiddleware sets the fixed response headers spec.md §4.7
// requires on every response.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func recoveryMiddleware(logFn func(interface{})) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logFn(recovered)
		abortWithError(c, apierror.Internal())
	})
}

func loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("%s %s %s %d %s\n", p.ClientIP, p.Method, p.Path, p.StatusCode, p.Latency)
	})
}

func abortWithError(c *gin.Context, err *apierror.Error) {
	c.JSON(err.Status, err.Body())
	c.Abort()
}
