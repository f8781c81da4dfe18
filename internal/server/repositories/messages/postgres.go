package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/dbx"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
)

const selectColumns = `id, name, content, status, created_at, approved_at,
        approved_by_approver_id, moderation_token, image_url, image_public_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query :=
		`INSERT INTO messages (name, content, status, moderation_token, image_url, image_public_id)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.Name, m.Content, string(m.Status), m.ModerationToken, m.ImageURL, m.ImagePublicID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m          models.Message
		status     string
		approvedAt sql.NullTime
		approvedBy sql.NullString
		imageURL   sql.NullString
		imageID    sql.NullString
	)

	err := row.Scan(&m.ID, &m.Name, &m.Content, &status, &m.CreatedAt, &approvedAt,
		&approvedBy, &m.ModerationToken, &imageURL, &imageID)
	if err != nil {
		return nil, err
	}

	m.Status = models.Status(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		m.ApprovedAt = &t
	}
	m.ApprovedByApproverID = nullString(approvedBy)
	m.ImageURL = nullString(imageURL)
	m.ImagePublicID = nullString(imageID)

	return &m, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + selectColumns + ` FROM messages WHERE id = $1`

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Message, error) {
	query := `SELECT ` + selectColumns + ` FROM messages ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.Status) ([]models.Message, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	query := `SELECT ` + selectColumns + ` FROM messages WHERE status = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, string(status))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	counts := map[models.Status]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[models.Status(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return counts, nil
}

// Transition applies t as a single conditional UPDATE. The WHERE clause is
// re-evaluated against the locked row, so concurrent writers aiming at the
// same target produce exactly one changed row between them.
func (r *PostgresRepository) Transition(ctx context.Context, t Transition) (bool, error) {
	query :=
		`UPDATE messages
            SET status = $2::text,
                approved_at = CASE WHEN $2::text = 'approved' THEN $3::timestamptz ELSE approved_at END,
                approved_by_approver_id = COALESCE($4::uuid, approved_by_approver_id)
          WHERE id = $1 AND status <> $2::text`
	if t.OnlyFromPending {
		query += ` AND status = 'pending'`
	}

	var approver any
	if t.ApproverID != nil {
		approver = *t.ApproverID
	}

	res, err := r.db.ExecContext(ctx, query, t.ID, string(t.To), t.At, approver)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*string, error) {
	var imageID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`DELETE FROM messages WHERE id = $1 RETURNING image_public_id`, id,
	).Scan(&imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return nullString(imageID), nil
}
