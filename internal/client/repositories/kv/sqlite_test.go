package kv

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{TableSession, TableUI} {
		_, err = db.Exec(`CREATE TABLE ` + table + ` (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
		require.NoError(t, err)
	}
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), TableSession)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), TableSession)

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertOverwrites(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), TableUI)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestTablesAreIndependent(t *testing.T) {
	db := setupDB(t)
	sessions := NewSQLiteRepository(db, TableSession)
	ui := NewSQLiteRepository(db, TableUI)
	ctx := context.Background()

	require.NoError(t, sessions.Set(ctx, "shared", []byte("s")))
	require.NoError(t, ui.Set(ctx, "shared", []byte("u")))
	require.NoError(t, ui.Clear(ctx))

	v, err := sessions.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("s"), v)
}

func TestList_DeleteAndClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), TableSession)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "b", []byte{0xBB}))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 2)

	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "a"))

	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"b": {0xBB}}, m)

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, TableSession)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get session_kv[k]")

	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set session_kv[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete session_kv[k]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear session_kv")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list session_kv")
}

func TestNewSQLiteRepository_UnknownTablePanics(t *testing.T) {
	require.Panics(t, func() { NewSQLiteRepository(setupDB(t), "users; DROP TABLE x") })
}
