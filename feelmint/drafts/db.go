package drafts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Open opens (or creates) the local draft database and ensures its schema.
// Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*bun.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?cache=shared&mode=rwc"
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open draft db: %w", err)
	}
	// sqlite misbehaves with more than one writer connection.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	return db, nil
}
