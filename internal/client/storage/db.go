// Package storage bootstraps the local SQLite database that backs the
// encrypted session store and the UI-state snapshot.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/xplit/internal/client/migrations"
	"github.com/dmitrijs2005/xplit/internal/client/repositories/kv"
	"github.com/dmitrijs2005/xplit/internal/dbx"
	"github.com/dmitrijs2005/xplit/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "xplit.db"

// RunMigrations applies the embedded goose migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// InitDatabase opens (creating if needed) the SQLite database at dsn and
// brings its schema up to date. A single connection serialises writers so
// every statement is durable before it returns.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA synchronous=FULL`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenInDir ensures dir exists and opens FileName inside it.
func OpenInDir(ctx context.Context, dir string) (*sql.DB, error) {
	dir, err := filex.EnsurePrivateDir(dir)
	if err != nil {
		return nil, err
	}
	return InitDatabase(ctx, filepath.Join(dir, FileName))
}

// Wipe deletes the stored session, PKCE verifier and UI snapshot in one
// transaction. The device key in the OS keychain is left alone.
func Wipe(ctx context.Context, db *sql.DB) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{kv.TableSession, kv.TableUI} {
			if err := kv.NewSQLiteRepository(tx, table).Clear(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
