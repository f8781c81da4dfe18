package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/gin-gonic/gin"
)

type errBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError sends a unified JSON error body and aborts the chain.
func respondError(c *gin.Context, status int, code, message string) {
	rid, _ := c.Get(requestIDKey)
	body := errBody{Code: code, Message: message}
	if rid != nil {
		body.RequestID = fmt.Sprint(rid)
	}
	c.AbortWithStatusJSON(status, body)
}

type errMapping struct {
	status  int
	code    string
	message string
}

// classify maps service errors to a status, code and a message safe for
// anonymous callers.
func classify(err error) errMapping {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return errMapping{http.StatusBadRequest, "bad_request", ve.Error()}
	case errors.Is(err, common.ErrorValidation):
		return errMapping{http.StatusBadRequest, "bad_request", "invalid request"}
	case errors.Is(err, common.ErrCaptchaFailed):
		return errMapping{http.StatusBadRequest, "captcha_failed", "captcha verification failed, please try again"}
	case errors.Is(err, common.ErrorUnauthorized):
		return errMapping{http.StatusUnauthorized, "unauthorized", "unauthorized"}
	case errors.Is(err, common.ErrBootstrapDisabled):
		return errMapping{http.StatusForbidden, "bootstrap_disabled", "bootstrap is disabled"}
	case errors.Is(err, common.ErrBootstrapClosed):
		return errMapping{http.StatusForbidden, "bootstrap_closed", "approvers already exist"}
	case errors.Is(err, common.ErrorForbidden):
		return errMapping{http.StatusForbidden, "forbidden", "forbidden"}
	case errors.Is(err, common.ErrorNotFound):
		return errMapping{http.StatusNotFound, "not_found", "not found"}
	case errors.Is(err, common.ErrorAlreadyExists):
		return errMapping{http.StatusConflict, "conflict", "already exists"}
	case errors.Is(err, common.ErrSelfLockout):
		return errMapping{http.StatusConflict, "self_lockout", err.Error()}
	case errors.Is(err, common.ErrAlreadyResolved):
		return errMapping{http.StatusConflict, "already_resolved", "message already moderated"}
	case errors.Is(err, common.ErrRateLimited):
		return errMapping{http.StatusTooManyRequests, "rate_limited", "too many attempts, try again later"}
	}
	return errMapping{http.StatusInternalServerError, "internal_error", "internal error"}
}

// fail writes err. Admins see the underlying error text on 5xx responses;
// anonymous callers only the generic message.
func (s *Server) fail(c *gin.Context, err error, detailed bool) {
	m := classify(err)
	if m.status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		if detailed {
			m.message = err.Error()
		}
	}
	respondError(c, m.status, m.code, m.message)
}
