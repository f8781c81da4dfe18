package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

const dashboardPath = "/admin/messages"

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func isForm(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEPOSTForm
}

// login accepts JSON or an HTML form. Form posts are answered with a
// redirect or the login page, JSON posts with JSON.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	sess, err := s.approvers.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		if isForm(c) {
			m := classify(err)
			msg := m.message
			if m.status == http.StatusUnauthorized {
				msg = "Invalid e-mail or password."
			}
			s.renderHTML(c, m.status, loginTemplate, msg)
			return
		}
		if errors.Is(err, common.ErrorUnauthorized) {
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		s.fail(c, err, false)
		return
	}

	s.setSession(c, sess.Token)

	if isForm(c) {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approver": sess.Approver})
}

func (s *Server) logout(c *gin.Context) {
	s.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"approver": actor(c)})
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.moderation.ListForDashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) approveMessage(c *gin.Context) {
	s.moderate(c, s.moderation.Approve)
}

func (s *Server) rejectMessage(c *gin.Context) {
	s.moderate(c, s.moderation.Reject)
}

type moderateFunc = func(ctx context.Context, actor *models.Approver, id string) (*services.TransitionResult, error)

func (s *Server) moderate(c *gin.Context, fn moderateFunc) {
	res, err := fn(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changed": res.Changed,
		"status":  res.Message.Status,
	})
}

func (s *Server) deleteMessage(c *gin.Context) {
	if err := s.moderation.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listApprovers(c *gin.Context) {
	list, err := s.approvers.List(c.Request.Context(), actor(c))
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvers": list})
}

func (s *Server) createApprover(c *gin.Context) {
	var in services.CreateApproverInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	a, err := s.approvers.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"approver": a})
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) setApproverActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		respondError(c, http.StatusBadRequest, "bad_request", "active is required")
		return
	}

	if err := s.approvers.SetActive(c.Request.Context(), actor(c), c.Param("id"), *req.Active); err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) changeApproverPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if err := s.approvers.ChangePassword(c.Request.Context(), actor(c), c.Param("id"), req.Password); err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) deleteApprover(c *gin.Context) {
	if err := s.approvers.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		s.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) adminHome(c *gin.Context) {
	c.Redirect(http.StatusFound, dashboardPath)
}
