package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/cryptox"
	"github.com/dmitrijs2005/memorialboard/internal/dbx"
	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/dmitrijs2005/memorialboard/internal/server/auth"
	"github.com/dmitrijs2005/memorialboard/internal/server/config"
	"github.com/dmitrijs2005/memorialboard/internal/server/limiter"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorialboard/internal/server/validation"
	"github.com/google/uuid"
)

// dummyHash is verified against when an e-mail is unknown, so both login
// failures cost one key derivation.
var dummyHash = func() string {
	h, err := auth.HashPassword("memorial-board-dummy")
	if err != nil {
		panic(err)
	}
	return h
}()

type ApproverService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	codec           *auth.SessionCodec
	limiter         limiter.LoginLimiter
	validator       *validation.Validator
	bootstrapSecret string
	logger          logging.Logger
}

func NewApproverService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, codec *auth.SessionCodec, l limiter.LoginLimiter, logger logging.Logger) *ApproverService {
	return &ApproverService{
		db:              db,
		repomanager:     rm,
		codec:           codec,
		limiter:         l,
		validator:       validation.New(),
		bootstrapSecret: cfg.BootstrapSecret,
		logger:          logger.With("module", "approvers"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is the result of a successful login.
type Session struct {
	Approver *models.Approver
	Token    string
}

// Login checks credentials and issues a session token. Unknown e-mail,
// wrong password and inactive account are indistinguishable to the caller.
func (s *ApproverService) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("", "email and password are required")
	}

	key := limiter.LoginKey(email, ip)
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, key); err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				s.logger.Warn(ctx, "login rate limited", "ip", ip)
				return nil, err
			}
			s.logger.Warn(ctx, "login limiter unavailable", "error", err)
		}
	}

	a, err := s.repomanager.Approvers(s.db).GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("load approver: %w", err)
	}

	if a == nil {
		auth.VerifyPassword(password, dummyHash)
		s.fail(ctx, key)
		return nil, common.ErrorUnauthorized
	}
	if !auth.VerifyPassword(password, a.PasswordHash) || !a.IsActive {
		s.fail(ctx, key)
		return nil, common.ErrorUnauthorized
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	token, err := s.codec.Issue(a.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info(ctx, "approver logged in", "approver_id", a.ID)
	return &Session{Approver: a, Token: token}, nil
}

func (s *ApproverService) fail(ctx context.Context, key string) {
	s.logger.Info(ctx, "login failed")
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, key); err != nil {
		s.logger.Warn(ctx, "login limiter unavailable", "error", err)
	}
}

// ActiveApprover returns the approver only if it exists and is active.
func (s *ApproverService) ActiveApprover(ctx context.Context, id string) (*models.Approver, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	a, err := s.repomanager.Approvers(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

// BootstrapInput creates the very first approver.
type BootstrapInput struct {
	Secret   string `json:"secret"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Bootstrap creates the first approver when none exist. The count is
// re-checked under an advisory lock so concurrent calls create at most one.
func (s *ApproverService) Bootstrap(ctx context.Context, in BootstrapInput) (*models.Approver, error) {
	if s.bootstrapSecret == "" {
		return nil, common.ErrBootstrapDisabled
	}

	n, err := s.repomanager.Approvers(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count approvers: %w", err)
	}
	if n > 0 {
		return nil, common.ErrBootstrapClosed
	}

	if !cryptox.EqualString(in.Secret, s.bootstrapSecret) {
		s.logger.Warn(ctx, "bootstrap secret mismatch")
		return nil, common.ErrorForbidden
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, common.NewValidationError("", "name, email and password are required")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *models.Approver
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Approvers(tx)

		if err := repo.LockBootstrap(ctx); err != nil {
			return err
		}
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return common.ErrBootstrapClosed
		}

		created, err = repo.Create(ctx, &models.Approver{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			IsActive:     true,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrBootstrapClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("bootstrap approver: %w", err)
	}

	s.logger.Info(ctx, "first approver created", "approver_id", created.ID)
	return created, nil
}

// CreateApproverInput is the dashboard form for a new approver.
type CreateApproverInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *ApproverService) Create(ctx context.Context, actor *models.Approver, in CreateApproverInput) (*models.Approver, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a, err := s.repomanager.Approvers(s.db).Create(ctx, &models.Approver{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create approver: %w", err)
	}

	s.logger.Info(ctx, "approver created", "approver_id", a.ID, "by", actor.ID)
	return a, nil
}

func (s *ApproverService) List(ctx context.Context, actor *models.Approver) ([]models.Approver, error) {
	if actor == nil {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Approvers(s.db).List(ctx)
}

// SetActive activates or deactivates an approver. Admins cannot deactivate
// themselves.
func (s *ApproverService) SetActive(ctx context.Context, actor *models.Approver, id string, active bool) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if err := validateID("id", id); err != nil {
		return err
	}
	if !active {
		if err := auth.GuardSelf(actor.ID, id); err != nil {
			return err
		}
	}

	if err := s.repomanager.Approvers(s.db).SetActive(ctx, id, active); err != nil {
		return err
	}

	s.logger.Info(ctx, "approver status changed", "approver_id", id, "active", active, "by", actor.ID)
	return nil
}

// ChangePassword sets a new password for any approver, including the caller.
func (s *ApproverService) ChangePassword(ctx context.Context, actor *models.Approver, id, password string) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if err := validateID("id", id); err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repomanager.Approvers(s.db).UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.logger.Info(ctx, "approver password changed", "approver_id", id, "by", actor.ID)
	return nil
}

// Delete removes an approver. Messages they moderated keep the dangling id.
func (s *ApproverService) Delete(ctx context.Context, actor *models.Approver, id string) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if err := validateID("id", id); err != nil {
		return err
	}
	if err := auth.GuardSelf(actor.ID, id); err != nil {
		return err
	}

	if err := s.repomanager.Approvers(s.db).Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(ctx, "approver deleted", "approver_id", id, "by", actor.ID)
	return nil
}
