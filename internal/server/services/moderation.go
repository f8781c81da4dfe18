// Package services contains server-side business logic. ModerationService
// owns the message lifecycle: submission, the one-click e-mail link path and
// the authenticated dashboard path. ApproverService owns admin accounts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/cryptox"
	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/dmitrijs2005/memorialboard/internal/server/captcha"
	"github.com/dmitrijs2005/memorialboard/internal/server/config"
	"github.com/dmitrijs2005/memorialboard/internal/server/media"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/notify"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/messages"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorialboard/internal/server/validation"
	"github.com/google/uuid"
)

// LinkPolicy controls what a repeated e-mail link click may do.
type LinkPolicy string

const (
	// LinkPolicyFlip lets a link move a message between approved and
	// rejected at any time.
	LinkPolicyFlip LinkPolicy = "flip"
	// LinkPolicyResolveOnce lets links only resolve pending messages; later
	// changes go through the dashboard.
	LinkPolicyResolveOnce LinkPolicy = "once"
)

// TokenGenerator produces moderation tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// Collaborators are the external systems ModerationService talks to.
// Images may be nil when uploads are not configured.
type Collaborators struct {
	Tokens    TokenGenerator
	Captcha   captcha.Verifier
	Images    media.Host
	Notifier  notify.Notifier
	Validator *validation.Validator
}

type ModerationService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	c             Collaborators
	policy        LinkPolicy
	baseURL       string
	fallbackEmail string
	maxImageBytes int64
	notifyTimeout time.Duration
	logger        logging.Logger
	now           func() time.Time

	pending sync.WaitGroup
}

func NewModerationService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, c Collaborators, logger logging.Logger) *ModerationService {
	policy := LinkPolicy(cfg.LinkPolicy)
	if policy != LinkPolicyResolveOnce {
		policy = LinkPolicyFlip
	}
	if c.Validator == nil {
		c.Validator = validation.New()
	}
	return &ModerationService{
		db:            db,
		repomanager:   rm,
		c:             c,
		policy:        policy,
		baseURL:       cfg.PublicBaseURL,
		fallbackEmail: cfg.NotifyFallbackEmail,
		maxImageBytes: cfg.MaxImageBytes,
		notifyTimeout: cfg.NotifyTimeout,
		logger:        logger.With("module", "moderation"),
		now:           time.Now,
	}
}

// SubmitInput is the public submission form.
type SubmitInput struct {
	Name         string `json:"name" validate:"required,max=80"`
	Content      string `json:"content" validate:"required,min=10,max=1000"`
	CaptchaToken string `json:"captchaToken" validate:"required"`
	Image        string `json:"image,omitempty"`
	RemoteIP     string `json:"-"`
}

// Submit stores a new pending message and notifies approvers in the
// background. An uploaded image is removed again if the message cannot be
// stored.
func (s *ModerationService) Submit(ctx context.Context, in SubmitInput) (*models.Message, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Content = strings.TrimSpace(in.Content)

	if err := s.c.Validator.Struct(in); err != nil {
		return nil, err
	}

	var img *media.Image
	if in.Image != "" {
		if s.c.Images == nil {
			return nil, common.NewValidationError("image", "uploads are not enabled")
		}
		decoded, err := media.DecodeDataURI(in.Image, s.maxImageBytes)
		if err != nil {
			return nil, err
		}
		img = decoded
	}

	ok, err := s.c.Captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP)
	if err != nil {
		s.logger.Error(ctx, "captcha verification unavailable", "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrCaptchaFailed
	}

	token, err := s.c.Tokens.Generate()
	if err != nil {
		s.logger.Error(ctx, "moderation token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	msg := &models.Message{
		Name:            in.Name,
		Content:         in.Content,
		Status:          models.StatusPending,
		ModerationToken: token,
	}

	var uploaded *media.UploadedImage
	if img != nil {
		uploaded, err = s.c.Images.Upload(ctx, *img)
		if err != nil {
			s.logger.Error(ctx, "image upload failed", "error", err)
			return nil, common.ErrorInternal
		}
		msg.ImageURL = &uploaded.URL
		msg.ImagePublicID = &uploaded.PublicID
	}

	created, err := s.repomanager.Messages(s.db).Create(ctx, msg)
	if err != nil {
		s.logger.Error(ctx, "message insert failed", "error", err)
		if uploaded != nil {
			if derr := s.c.Images.Delete(ctx, uploaded.PublicID); derr != nil {
				s.logger.Warn(ctx, "orphaned image cleanup failed", "image_id", uploaded.PublicID, "error", derr)
			}
		}
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "message submitted", "message_id", created.ID)
	s.notifyApprovers(ctx, *created)

	return created, nil
}

// LinkAction is an unauthenticated approve/reject request from an e-mail link.
type LinkAction struct {
	MessageID  string
	Token      string
	ApproverID string
	Target     models.Status
}

// TransitionResult reports the message after a moderation action and
// whether this call changed it.
type TransitionResult struct {
	Message *models.Message
	Changed bool
}

func validateTarget(target models.Status) error {
	if target != models.StatusApproved && target != models.StatusRejected {
		return common.NewValidationError("status", "must be approved or rejected")
	}
	return nil
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.NewValidationError(field, "must be a valid id")
	}
	return nil
}

// ResolveByToken applies a link click. The token must match the one issued
// for the message exactly; a click that finds the message already in the
// target state succeeds without touching it.
func (s *ModerationService) ResolveByToken(ctx context.Context, a LinkAction) (*TransitionResult, error) {
	if a.MessageID == "" || a.Token == "" {
		return nil, common.NewValidationError("", "missing id or token")
	}
	if err := validateID("id", a.MessageID); err != nil {
		return nil, err
	}
	if a.ApproverID != "" {
		if err := validateID("approver", a.ApproverID); err != nil {
			return nil, err
		}
	}
	if err := validateTarget(a.Target); err != nil {
		return nil, err
	}

	repo := s.repomanager.Messages(s.db)

	msg, err := repo.GetByID(ctx, a.MessageID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "moderation link for unknown message", "message_id", a.MessageID)
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	if !cryptox.EqualString(a.Token, msg.ModerationToken) {
		s.logger.Warn(ctx, "moderation token mismatch", "message_id", a.MessageID)
		return nil, common.ErrorForbidden
	}

	if msg.Status == a.Target {
		return &TransitionResult{Message: msg, Changed: false}, nil
	}
	if s.policy == LinkPolicyResolveOnce && msg.Status != models.StatusPending {
		return nil, common.ErrAlreadyResolved
	}

	t := messages.Transition{
		ID:              a.MessageID,
		To:              a.Target,
		At:              s.now().UTC(),
		OnlyFromPending: s.policy == LinkPolicyResolveOnce,
	}
	if a.ApproverID != "" {
		approver := a.ApproverID
		t.ApproverID = &approver
	}

	res, err := s.apply(ctx, repo, t)
	if err != nil {
		return nil, err
	}
	if !res.Changed && res.Message.Status != a.Target && s.policy == LinkPolicyResolveOnce {
		return nil, common.ErrAlreadyResolved
	}

	if res.Changed {
		s.logger.Info(ctx, "message moderated by link", "message_id", a.MessageID, "status", string(a.Target), "approver_id", a.ApproverID)
	}
	return res, nil
}

// apply runs the conditional update and reloads the message. Zero affected
// rows means a concurrent writer got there first or the message is gone.
func (s *ModerationService) apply(ctx context.Context, repo messages.Repository, t messages.Transition) (*TransitionResult, error) {
	changed, err := repo.Transition(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("transition message: %w", err)
	}

	msg, err := repo.GetByID(ctx, t.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("reload message: %w", err)
	}

	return &TransitionResult{Message: msg, Changed: changed}, nil
}

// Approve is the dashboard approve action.
func (s *ModerationService) Approve(ctx context.Context, actor *models.Approver, id string) (*TransitionResult, error) {
	return s.moderate(ctx, actor, id, models.StatusApproved)
}

// Reject is the dashboard reject action. Approved messages may be revoked.
func (s *ModerationService) Reject(ctx context.Context, actor *models.Approver, id string) (*TransitionResult, error) {
	return s.moderate(ctx, actor, id, models.StatusRejected)
}

func (s *ModerationService) moderate(ctx context.Context, actor *models.Approver, id string, target models.Status) (*TransitionResult, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	approver := actor.ID
	res, err := s.apply(ctx, s.repomanager.Messages(s.db), messages.Transition{
		ID:         id,
		To:         target,
		At:         s.now().UTC(),
		ApproverID: &approver,
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		s.logger.Info(ctx, "message moderated from dashboard", "message_id", id, "status", string(target), "approver_id", actor.ID)
	}
	return res, nil
}

// Delete removes a message for good. Its image is deleted afterwards on a
// best-effort basis.
func (s *ModerationService) Delete(ctx context.Context, actor *models.Approver, id string) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if err := validateID("id", id); err != nil {
		return err
	}

	imageID, err := s.repomanager.Messages(s.db).Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}

	s.logger.Info(ctx, "message deleted", "message_id", id, "approver_id", actor.ID)

	if imageID != nil && s.c.Images != nil {
		if err := s.c.Images.Delete(ctx, *imageID); err != nil {
			s.logger.Warn(ctx, "image delete failed", "message_id", id, "image_id", *imageID, "error", err)
		}
	}
	return nil
}

// Counts are per-status message totals.
type Counts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// DashboardMessage is a message as shown to admins. ApprovedByName is
// "unknown" when the recorded approver no longer exists.
type DashboardMessage struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Content        string        `json:"content"`
	Status         models.Status `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	ApprovedByID   *string       `json:"approved_by_id,omitempty"`
	ApprovedByName string        `json:"approved_by_name,omitempty"`
	ImageURL       *string       `json:"image_url,omitempty"`
	VideoID        string        `json:"video_id,omitempty"`
}

type Dashboard struct {
	Messages []DashboardMessage `json:"messages"`
	Counts   Counts             `json:"counts"`
}

// UnknownApprover is shown for provenance pointing at a deleted account.
const UnknownApprover = "unknown"

func (s *ModerationService) ListForDashboard(ctx context.Context) (*Dashboard, error) {
	repo := s.repomanager.Messages(s.db)

	list, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	approvers, err := s.repomanager.Approvers(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}
	names := make(map[string]string, len(approvers))
	for _, a := range approvers {
		names[a.ID] = a.Name
	}

	d := &Dashboard{
		Messages: make([]DashboardMessage, 0, len(list)),
		Counts: Counts{
			Pending:  counts[models.StatusPending],
			Approved: counts[models.StatusApproved],
			Rejected: counts[models.StatusRejected],
		},
	}
	for i := range list {
		m := &list[i]
		dm := DashboardMessage{
			ID:           m.ID,
			Name:         m.Name,
			Content:      m.Content,
			Status:       m.Status,
			CreatedAt:    m.CreatedAt,
			ApprovedAt:   m.ApprovedAt,
			ApprovedByID: m.ApprovedByApproverID,
			ImageURL:     m.ImageURL,
			VideoID:      m.VideoID(),
		}
		if m.ApprovedByApproverID != nil {
			if name, ok := names[*m.ApprovedByApproverID]; ok {
				dm.ApprovedByName = name
			} else {
				dm.ApprovedByName = UnknownApprover
			}
		}
		d.Messages = append(d.Messages, dm)
	}

	return d, nil
}

// ListPublic returns approved messages, newest first, without any
// moderation data.
func (s *ModerationService) ListPublic(ctx context.Context) ([]models.PublicMessage, error) {
	list, err := s.repomanager.Messages(s.db).ListByStatus(ctx, models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved messages: %w", err)
	}

	out := make([]models.PublicMessage, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out, nil
}

// Wait blocks until background notifications have finished.
func (s *ModerationService) Wait() {
	s.pending.Wait()
}
