package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS approvers (id INTEGER PRIMARY KEY, email TEXT UNIQUE);`)
	require.NoError(t, err)
	return db
}

func countApprovers(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM approvers`).Scan(&n))
	return n
}

func insertApprover(ctx context.Context, tx DBTX, email string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO approvers(email) VALUES (?)`, email)
	return err
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertApprover(ctx, tx, "a@example.com"); err != nil {
			return err
		}
		return insertApprover(ctx, tx, "b@example.com")
	})
	require.NoError(t, err)
	require.Equal(t, 2, countApprovers(t, db))
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertApprover(ctx, tx, "a@example.com"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, countApprovers(t, db))
}

func TestWithTx_RollbackOnStatementError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertApprover(ctx, tx, "dup@example.com"))
		return insertApprover(ctx, tx, "dup@example.com")
	})
	require.Error(t, err, "unique violation must surface")
	require.Equal(t, 0, countApprovers(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countApprovers(t, db))
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertApprover(ctx, tx, "a@example.com"))
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}
