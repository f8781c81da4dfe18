package models

import (
	"regexp"
	"strings"
	"time"
)

// Status is the moderation state of a message.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Message is a stored remembrance message including moderation secrets.
// It must not be rendered to anonymous readers; use PublicMessage.
type Message struct {
	ID                   string
	Name                 string
	Content              string
	Status               Status
	CreatedAt            time.Time
	ApprovedAt           *time.Time
	ApprovedByApproverID *string
	ModerationToken      string
	ImageURL             *string
	ImagePublicID        *string
}

// PublicMessage is the anonymous read view of an approved message.
type PublicMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ImageURL  *string   `json:"image_url,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
}

var videoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?(?:[^#&]*&)*v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/live/([a-zA-Z0-9_-]{11})`),
}

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/[a-zA-Z0-9_-]{11}\S*`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/(?:watch|embed|shorts|live)\S*`),
}

// VideoID returns the first YouTube video id referenced in the message body,
// or "" when there is none.
func (m *Message) VideoID() string {
	return ExtractVideoID(m.Content)
}

// ExtractVideoID finds a YouTube video id in free text.
func ExtractVideoID(text string) string {
	for _, p := range videoPatterns {
		if sm := p.FindStringSubmatch(text); len(sm) == 2 {
			return sm[1]
		}
	}
	return ""
}

// StripVideoURLs removes YouTube links from text so the embedded player
// does not repeat them.
func StripVideoURLs(text string) string {
	for _, p := range videoURLPatterns {
		text = p.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// Public builds the anonymous view of m. When a video is referenced its URL
// is removed from the rendered content.
func (m *Message) Public() PublicMessage {
	pm := PublicMessage{
		ID:        m.ID,
		Name:      m.Name,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		ImageURL:  m.ImageURL,
		VideoID:   m.VideoID(),
	}
	if pm.VideoID != "" {
		pm.Content = StripVideoURLs(m.Content)
	}
	return pm
}
