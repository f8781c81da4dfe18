package approvers

import (
	"context"

	"github.com/dmitrijs2005/memorialboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Approver) (*models.Approver, error)
	GetByID(ctx context.Context, id string) (*models.Approver, error)
	GetByEmail(ctx context.Context, email string) (*models.Approver, error)
	List(ctx context.Context) ([]models.Approver, error)
	Count(ctx context.Context) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Delete(ctx context.Context, id string) error
	// LockBootstrap serialises first-admin creation for the rest of the
	// enclosing transaction.
	LockBootstrap(ctx context.Context) error
}
