// Package pgx wraps jackc/pgx with the connection plumbing the REST layer
// runs on: a minimal execution interface satisfied by single connections and
// pools alike, a manager for named pools, and row-to-map decoding for JSON
// responses.
package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the execution surface handlers depend on. Both *pgx.Conn and
// *pgxpool.Pool satisfy it, so tests can substitute either, or a fake.
type Conn interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query runs a statement and returns its result rows. Generated
	// mutations go through Query too, since they carry RETURNING clauses.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow runs a statement expected to produce exactly one row, such
	// as a count.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
