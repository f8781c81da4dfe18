package auth

import (
	"context"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
)

// ApproverLookup resolves an approver id to an active account.
type ApproverLookup interface {
	ActiveApprover(ctx context.Context, id string) (*models.Approver, error)
}

// Gate decides whether a session token belongs to an active admin.
type Gate struct {
	codec     *SessionCodec
	approvers ApproverLookup
	logger    logging.Logger
}

func NewGate(codec *SessionCodec, approvers ApproverLookup, logger logging.Logger) *Gate {
	return &Gate{codec: codec, approvers: approvers, logger: logger.With("module", "gate")}
}

// Peek is the cheap shape check used before routing.
func (g *Gate) Peek(token string) (string, bool) {
	return PeekSubject(token)
}

// Authorize verifies the token signature and loads the active approver.
// Any failure is reported as common.ErrorUnauthorized.
func (g *Gate) Authorize(ctx context.Context, token string) (*models.Approver, error) {
	adminID, err := g.codec.Verify(token)
	if err != nil {
		g.logger.Debug(ctx, "session rejected", "reason", "bad signature")
		return nil, common.ErrorUnauthorized
	}

	a, err := g.approvers.ActiveApprover(ctx, adminID)
	if err != nil {
		g.logger.Debug(ctx, "session rejected", "admin_id", adminID, "error", err)
		return nil, common.ErrorUnauthorized
	}

	return a, nil
}

// GuardSelf refuses operations an admin must not perform on their own account.
func GuardSelf(callerID, targetID string) error {
	if callerID == targetID {
		return common.ErrSelfLockout
	}
	return nil
}
