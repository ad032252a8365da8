package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"useretl/pkg/config"
	errs "useretl/pkg/errors"
	"useretl/pkg/logger"
)

// Connect opens a bun handle to the configured PostgreSQL database and pings it
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*bun.DB, error) {
	// Functional options escape special characters in credentials
	connector := pgdriver.NewConnector(
		pgdriver.WithNetwork("tcp"),
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithInsecure(cfg.SSLMode == "disable"),
		pgdriver.WithApplicationName("useretl"),
	)

	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Persist("connect", fmt.Errorf("database %s at %s:%d: %w", cfg.Database, cfg.Host, cfg.Port, err))
	}

	logger.GetLogger().InfoWithFields("connected to database", map[string]interface{}{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.Database,
	})
	return db, nil
}

// Open connects and wraps the handle in a Store
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}
