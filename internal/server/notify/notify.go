// Package notify tells approvers about newly submitted messages.
package notify

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Notification is one e-mail to one recipient about one pending message.
type Notification struct {
	To           string
	ApproverID   string
	MessageID    string
	Name         string
	Content      string
	CreatedAt    time.Time
	ApproveURL   string
	RejectURL    string
	DashboardURL string
}

// Notifier delivers notifications. Callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Links holds the one-click moderation URLs for a message.
type Links struct {
	Approve   string
	Reject    string
	Dashboard string
}

// ModerationLinks builds the approve/reject URLs under baseURL. approverID
// is added as the approver parameter when non-empty.
func ModerationLinks(baseURL, messageID, token, approverID string) Links {
	base := strings.TrimRight(baseURL, "/")

	q := url.Values{}
	q.Set("id", messageID)
	q.Set("token", token)
	if approverID != "" {
		q.Set("approver", approverID)
	}
	query := q.Encode()

	return Links{
		Approve:   base + "/api/approve?" + query,
		Reject:    base + "/api/reject?" + query,
		Dashboard: base + "/admin",
	}
}
