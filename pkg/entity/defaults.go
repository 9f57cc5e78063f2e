package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/restq/restq/pkg/query"
)

// now is swapped out by tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// ApplyInsertDefaults fills server-generated columns on create: a UUID
// primary key when the entity asked for one, and the created-at stamp. Runs
// after validation and hooks so the generated values are never rejected or
// overwritten.
func (b *Binding) ApplyInsertDefaults(rows []query.Row) {
	ts := now()
	for i := range rows {
		if b.PrimaryKeyGUID && !rows[i].Has(b.PrimaryKey) {
			rows[i].Set(b.PrimaryKey, uuid.NewString())
		}
		if b.CreatedAtField != "" {
			rows[i].Set(b.CreatedAtField, ts)
		}
	}
}

// ApplyUpdateDefaults stamps the updated-at column when the entity declares
// one.
func (b *Binding) ApplyUpdateDefaults(row *query.Row) {
	if b.UpdatedAtField != "" {
		row.Set(b.UpdatedAtField, now())
	}
}
