// Package repositories wires the on-device database: it opens the SQLite
// file, runs the embedded goose migrations, and hands out one repository per
// collection plus the pending queue and sync metadata.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/whisper-money/whisper-money-sub001/internal/client/migrations"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/accounts"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/automations"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/budgets"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/categories"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/labels"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/syncmeta"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/transactions"

	_ "modernc.org/sqlite"
)

// Repositories bundles the local store handles for injection into services.
type Repositories struct {
	DB *sql.DB

	Accounts     accounts.Repository
	Transactions transactions.Repository
	Categories   categories.Repository
	Labels       labels.Repository
	Automations  automations.Repository
	Budgets      budgets.Repository
	Pending      pending.Repository
	Meta         syncmeta.Repository
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (or creates) the database at dsn, migrates it, and returns the
// repository set. The caller owns closing DB.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repositories{
		DB:           db,
		Accounts:     accounts.NewSQLiteRepository(),
		Transactions: transactions.NewSQLiteRepository(),
		Categories:   categories.NewSQLiteRepository(),
		Labels:       labels.NewSQLiteRepository(),
		Automations:  automations.NewSQLiteRepository(),
		Budgets:      budgets.NewSQLiteRepository(),
		Pending:      pending.NewSQLiteRepository(),
		Meta:         syncmeta.NewSQLiteRepository(),
	}, nil
}

// Close releases the database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}
