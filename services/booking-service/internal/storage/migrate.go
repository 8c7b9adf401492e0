package storage

import (
	"context"
	_ "embed"

	"github.com/homefix/calbook/libs/db"
)

//go:embed schema.sql
var schema string

// Migrate creates the bookings and outbox tables if they do not exist.
func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
