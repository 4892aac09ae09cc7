package dbx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openKV(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func keys(t *testing.T, db DBTX) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM kv`).Scan(&n))
	return n
}

func putTwo(ctx context.Context, tx DBTX) error {
	for _, k := range []string{"session", "verifier"} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv(key, value) VALUES (?, x'00')`, k); err != nil {
			return err
		}
	}
	return nil
}

func TestWithTx(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		fn       func(ctx context.Context, tx DBTX) error
		wantErr  error
		wantRows int
	}{
		{name: "commit", fn: putTwo, wantRows: 2},
		{name: "rollback on error", fn: func(ctx context.Context, tx DBTX) error {
			require.NoError(t, putTwo(ctx, tx))
			return boom
		}, wantErr: boom},
		{name: "rollback on statement failure", fn: func(ctx context.Context, tx DBTX) error {
			if err := putTwo(ctx, tx); err != nil {
				return err
			}
			return putTwo(ctx, tx) // duplicate keys
		}, wantErr: errors.New("any")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openKV(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, boom):
				require.ErrorIs(t, err, boom)
			default:
				require.Error(t, err)
			}
			assert.Equal(t, tt.wantRows, keys(t, db))
		})
	}
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openKV(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, putTwo(ctx, tx))
			panic("kaput")
		})
	})
	assert.Zero(t, keys(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openKV(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
