package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/server/models"
)

// Transition describes a conditional status change.
//
// The row is updated only when its current status differs from To, and,
// with OnlyFromPending, only while it is still pending. ApproverID, when
// set, overwrites the recorded provenance; nil keeps it.
type Transition struct {
	ID              string
	To              models.Status
	At              time.Time
	ApproverID      *string
	OnlyFromPending bool
}

type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context) ([]models.Message, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.Message, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	// Transition reports whether a row was changed.
	Transition(ctx context.Context, t Transition) (bool, error)
	// Delete removes the message and returns the image reference it carried.
	Delete(ctx context.Context, id string) (imagePublicID *string, err error)
}
