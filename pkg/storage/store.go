package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	errs "useretl/pkg/errors"
	"useretl/pkg/models"
)

// Store persists transformed users and run records in PostgreSQL
type Store struct {
	db *bun.DB
}

// NewStore creates a Store over an open bun handle
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle
func (s *Store) DB() *bun.DB {
	return s.db
}

// EnsureSchema creates the tables if they do not exist yet
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := CreateSchema(ctx, s.db, (*UserDao)(nil), (*RunDao)(nil)); err != nil {
		return errs.Persist("ensure schema", err)
	}
	return nil
}

// CreateSchema runs CREATE TABLE IF NOT EXISTS for every model inside one transaction
func CreateSchema(ctx context.Context, db bun.IDB, models ...interface{}) error {
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}
		return nil
	})
}

// InsertUser inserts one row. Duplicates are not detected.
func (s *Store) InsertUser(ctx context.Context, user *models.UserInfo) error {
	return s.InsertUserAndThen(ctx, user, nil)
}

// InsertUserAndThen inserts one row and runs fn inside the same transaction.
// The row is committed only if fn returns nil.
func (s *Store) InsertUserAndThen(ctx context.Context, user *models.UserInfo, fn func() error) error {
	dao := toUserDao(user)

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(dao).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		if fn != nil {
			return fn()
		}
		return nil
	})
	if err != nil {
		return errs.Persist("insert user", err)
	}
	return nil
}

// RecordRun stores the audit row for a finished run
func (s *Store) RecordRun(ctx context.Context, run *RunDao) error {
	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return errs.Persist("record run", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunDao, error) {
	var runs []RunDao
	err := s.db.NewSelect().
		Model(&runs).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errs.Persist("list runs", err)
	}
	return runs, nil
}

// CountUsers returns the number of rows in random_users
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*UserDao)(nil)).Count(ctx)
	if err != nil {
		return 0, errs.Persist("count users", err)
	}
	return n, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}
