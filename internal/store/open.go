package store

import (
	"context"
	"fmt"

	"github.com/stanadevale/trailrace/internal/database"
	"github.com/stanadevale/trailrace/internal/migrations"
)

// Open returns the store selected by driver ("sqlite" or "memory"). For
// sqlite the database at path is created if needed and migrated. close
// releases the underlying connection.
func Open(ctx context.Context, driver, path string) (st Store, close func() error, err error) {
	switch driver {
	case "memory":
		return NewMemStore(), func() error { return nil }, nil
	case "sqlite":
		db, err := database.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunContext(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
