package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) approveLink(c *gin.Context) {
	s.resolveLink(c, models.StatusApproved)
}

func (s *Server) rejectLink(c *gin.Context) {
	s.resolveLink(c, models.StatusRejected)
}

// resolveLink serves the one-click links from notification e-mails. The
// answer is always a small HTML page.
func (s *Server) resolveLink(c *gin.Context, target models.Status) {
	res, err := s.moderation.ResolveByToken(c.Request.Context(), services.LinkAction{
		MessageID:  c.Query("id"),
		Token:      c.Query("token"),
		ApproverID: c.Query("approver"),
		Target:     target,
	})
	if err != nil {
		m := classify(err)
		if m.status >= http.StatusInternalServerError {
			s.logger.Error(c.Request.Context(), "moderation link failed", "error", err)
		}
		s.renderHTML(c, m.status, resultTemplate, linkErrorPage(m.status))
		return
	}

	s.renderHTML(c, http.StatusOK, resultTemplate, linkResultPage(res, target))
}

func linkResultPage(res *services.TransitionResult, target models.Status) resultPage {
	p := resultPage{Tone: "ok", Dashboard: true}
	switch {
	case !res.Changed:
		p.Title = "Nothing to do"
		p.Message = fmt.Sprintf("This message has already been %s.", res.Message.Status)
	case target == models.StatusApproved:
		p.Title = "Approved"
		p.Message = "Message approved and now visible on the memorial board."
	default:
		p.Title = "Rejected"
		p.Message = "Message rejected and hidden from the memorial board."
	}
	return p
}

func linkErrorPage(status int) resultPage {
	p := resultPage{Title: "Error", Tone: "error"}
	switch status {
	case http.StatusBadRequest:
		p.Message = "Invalid moderation link."
	case http.StatusForbidden:
		p.Message = "Invalid or expired token."
	case http.StatusNotFound:
		p.Message = "Message not found."
	case http.StatusConflict:
		p.Message = "This message has already been moderated. Use the dashboard to change it."
		p.Dashboard = true
	default:
		p.Message = "Something went wrong. Please try again."
	}
	return p
}
