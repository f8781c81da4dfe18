package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/server/auth"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "reqid"
	approverKey  = "approver"

	loginPath  = "/admin/login"
	logoutPath = "/admin/logout"
)

// requestID injects or propagates an X-Request-ID.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		st := c.Writer.Status()
		rid, _ := c.Get(requestIDKey)
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", st,
			"bytes", c.Writer.Size(),
			"remote", c.ClientIP(),
			"reqid", rid,
			"dur_ms", time.Since(start).Milliseconds(),
		}

		ctx := c.Request.Context()
		switch {
		case st >= 500:
			s.logger.Error(ctx, "http", args...)
		case st >= 400:
			s.logger.Warn(ctx, "http", args...)
		default:
			s.logger.Info(ctx, "http", args...)
		}
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.MaxBodyBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)
		}
		c.Next()
	}
}

func isProtected(path string) bool {
	if path != "/admin" && !strings.HasPrefix(path, "/admin/") {
		return false
	}
	return path != loginPath && path != logoutPath
}

// denyAdmin sends browsers to the login page and API clients a 401.
func denyAdmin(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
		return
	}
	respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
}

// adminPrefilter runs before routing and turns away requests to admin paths
// that do not even carry a well-formed session cookie. It does not touch
// the store.
func (s *Server) adminPrefilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isProtected(c.Request.URL.Path) {
			c.Next()
			return
		}
		token, err := c.Cookie(auth.SessionCookieName)
		if err != nil {
			denyAdmin(c)
			return
		}
		if _, ok := s.gate.Peek(token); !ok {
			denyAdmin(c)
			return
		}
		c.Next()
	}
}

// requireAdmin fully verifies the session and loads the active approver.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(auth.SessionCookieName)
		a, err := s.gate.Authorize(c.Request.Context(), token)
		if err != nil {
			s.clearSession(c)
			denyAdmin(c)
			return
		}
		c.Set(approverKey, a)
		c.Next()
	}
}

func actor(c *gin.Context) *models.Approver {
	v, ok := c.Get(approverKey)
	if !ok {
		return nil
	}
	a, _ := v.(*models.Approver)
	return a
}

func (s *Server) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, token, int(auth.SessionTTL/time.Second), "/", "", s.opts.SecureCookie, true)
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", s.opts.SecureCookie, true)
}
