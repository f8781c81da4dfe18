package approvers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/dbx"
	"github.com/dmitrijs2005/memorialboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// bootstrapLockKey is the pg_advisory_xact_lock key guarding first-admin creation.
const bootstrapLockKey int64 = 0x6d656d6f7269616c

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Approver) (*models.Approver, error) {
	query :=
		`INSERT INTO approvers (name, email, password_hash, is_active)
         VALUES ($1, $2, $3, $4)
         RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, a.Name, a.Email, a.PasswordHash, a.IsActive).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.Approver, error) {
	query := `SELECT id, name, email, password_hash, is_active, created_at FROM approvers WHERE ` + where

	a := &models.Approver{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Approver, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Approver, error) {
	return r.get(ctx, `email = $1`, email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Approver, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, is_active, created_at FROM approvers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Approver, 0)
	for rows.Next() {
		var a models.Approver
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM approvers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, `UPDATE approvers SET is_active = $2 WHERE id = $1`, id, active)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.exec(ctx, `UPDATE approvers SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM approvers WHERE id = $1`, id)
}

func (r *PostgresRepository) LockBootstrap(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
