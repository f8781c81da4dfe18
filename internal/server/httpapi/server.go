// Package httpapi exposes the memorial board over HTTP using gin.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/dmitrijs2005/memorialboard/internal/server/auth"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Moderation is the message lifecycle as used by the handlers.
type Moderation interface {
	Submit(ctx context.Context, in services.SubmitInput) (*models.Message, error)
	ResolveByToken(ctx context.Context, a services.LinkAction) (*services.TransitionResult, error)
	Approve(ctx context.Context, actor *models.Approver, id string) (*services.TransitionResult, error)
	Reject(ctx context.Context, actor *models.Approver, id string) (*services.TransitionResult, error)
	Delete(ctx context.Context, actor *models.Approver, id string) error
	ListForDashboard(ctx context.Context) (*services.Dashboard, error)
	ListPublic(ctx context.Context) ([]models.PublicMessage, error)
}

// Approvers is admin account management as used by the handlers.
type Approvers interface {
	Login(ctx context.Context, email, password, ip string) (*services.Session, error)
	Bootstrap(ctx context.Context, in services.BootstrapInput) (*models.Approver, error)
	Create(ctx context.Context, actor *models.Approver, in services.CreateApproverInput) (*models.Approver, error)
	List(ctx context.Context, actor *models.Approver) ([]models.Approver, error)
	SetActive(ctx context.Context, actor *models.Approver, id string, active bool) error
	ChangePassword(ctx context.Context, actor *models.Approver, id, password string) error
	Delete(ctx context.Context, actor *models.Approver, id string) error
}

// Options tune transport behaviour.
type Options struct {
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// MaxBodyBytes caps request bodies; zero means no cap.
	MaxBodyBytes int64
}

type Server struct {
	moderation Moderation
	approvers  Approvers
	gate       *auth.Gate
	opts       Options
	logger     logging.Logger
}

func NewServer(m Moderation, a Approvers, gate *auth.Gate, opts Options, logger logging.Logger) *Server {
	return &Server{
		moderation: m,
		approvers:  a,
		gate:       gate,
		opts:       opts,
		logger:     logger.With("module", "http"),
	}
}

// Engine builds the gin router with all routes and middleware.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(s.requestID(), s.accessLog(), gin.Recovery(), s.limitBody(), s.adminPrefilter())

	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.GET("/messages", s.listPublic)
	api.POST("/submit", s.submit)
	api.GET("/approve", s.approveLink)
	api.GET("/reject", s.rejectLink)
	api.POST("/bootstrap", s.bootstrap)

	r.GET("/admin/login", s.loginPage)
	r.POST("/admin/login", s.login)
	r.POST("/admin/logout", s.logout)

	admin := r.Group("/admin", s.requireAdmin())
	admin.GET("", s.adminHome)
	admin.GET("/me", s.me)
	admin.GET("/messages", s.dashboard)
	admin.POST("/messages/:id/approve", s.approveMessage)
	admin.POST("/messages/:id/reject", s.rejectMessage)
	admin.DELETE("/messages/:id", s.deleteMessage)
	admin.GET("/approvers", s.listApprovers)
	admin.POST("/approvers", s.createApprover)
	admin.PATCH("/approvers/:id/active", s.setApproverActive)
	admin.PUT("/approvers/:id/password", s.changeApproverPassword)
	admin.DELETE("/approvers/:id", s.deleteApprover)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", "not found")
	})

	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
