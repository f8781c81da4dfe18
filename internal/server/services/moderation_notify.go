package services

import (
	"context"

	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/notify"
)

// notifyApprovers e-mails every active approver about msg from a detached
// goroutine. The request context only contributes its values.
func (s *ModerationService) notifyApprovers(ctx context.Context, msg models.Message) {
	if s.c.Notifier == nil {
		return
	}

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		for _, n := range s.notifications(bg, msg) {
			if err := s.c.Notifier.Notify(bg, n); err != nil {
				s.logger.Warn(bg, "notification failed", "message_id", msg.ID, "to", n.To, "error", err)
			}
		}
	}()
}

func (s *ModerationService) notifications(ctx context.Context, msg models.Message) []notify.Notification {
	approvers, err := s.repomanager.Approvers(s.db).List(ctx)
	if err != nil {
		s.logger.Warn(ctx, "cannot list approvers for notification", "message_id", msg.ID, "error", err)
	}

	base := notify.Notification{
		MessageID: msg.ID,
		Name:      msg.Name,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	var out []notify.Notification
	for _, a := range approvers {
		if !a.IsActive {
			continue
		}
		out = append(out, withLinks(base, s.baseURL, msg, a.Email, a.ID))
	}

	if len(out) == 0 {
		if s.fallbackEmail == "" {
			s.logger.Warn(ctx, "no recipients for notification", "message_id", msg.ID)
			return nil
		}
		out = append(out, withLinks(base, s.baseURL, msg, s.fallbackEmail, ""))
	}

	return out
}

func withLinks(n notify.Notification, baseURL string, msg models.Message, to, approverID string) notify.Notification {
	links := notify.ModerationLinks(baseURL, msg.ID, msg.ModerationToken, approverID)
	n.To = to
	n.ApproverID = approverID
	n.ApproveURL = links.Approve
	n.RejectURL = links.Reject
	n.DashboardURL = links.Dashboard
	return n
}
