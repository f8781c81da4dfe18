package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) listPublic(c *gin.Context) {
	list, err := s.moderation.ListPublic(c.Request.Context())
	if err != nil {
		s.fail(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (s *Server) submit(c *gin.Context) {
	var in services.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	in.RemoteIP = c.ClientIP()

	msg, err := s.moderation.Submit(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err, false)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": msg.ID})
}

func (s *Server) bootstrap(c *gin.Context) {
	var in services.BootstrapInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	a, err := s.approvers.Bootstrap(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err, false)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "approver": a})
}
