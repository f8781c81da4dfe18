package notify

import (
	"context"

	"github.com/dmitrijs2005/memorialboard/internal/logging"
)

// LogNotifier records notifications in the log instead of sending them.
// Moderation links are not logged.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.Info(ctx, "moderation notification",
		"message_id", n.MessageID,
		"to", n.To,
		"approver_id", n.ApproverID,
	)
	return nil
}
