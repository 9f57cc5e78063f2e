package entity

import (
	"context"
	"net/http"

	"github.com/restq/restq/pkg/query"
)

// Hooks intercept the request pipeline at fixed points. Implementations must
// return data of the same shape they received; returning an error aborts the
// request. Hook output is trusted and not re-validated, so hooks may inject
// server-side fields the field schema would reject from clients.
//
// Embed NopHooks to implement only the hooks you need.
type Hooks interface {
	// PreInsert runs after validation for each row about to be inserted.
	PreInsert(ctx context.Context, row query.Row) (query.Row, error)
	// PreUpdate runs after validation on the update payload.
	PreUpdate(ctx context.Context, row query.Row) (query.Row, error)
	// PreQuery runs last before SQL generation and may rewrite the whole
	// command, e.g. to scope the filter to a tenant from the URL.
	PreQuery(ctx context.Context, cmd *query.Command, r *http.Request) error
	// PostSelect runs on rows read back from the database before they are
	// written to the response.
	PostSelect(ctx context.Context, rows []map[string]any) ([]map[string]any, error)
}

// NopHooks is the identity implementation of Hooks.
type NopHooks struct{}

func (NopHooks) PreInsert(_ context.Context, row query.Row) (query.Row, error) {
	return row, nil
}

func (NopHooks) PreUpdate(_ context.Context, row query.Row) (query.Row, error) {
	return row, nil
}

func (NopHooks) PreQuery(context.Context, *query.Command, *http.Request) error {
	return nil
}

func (NopHooks) PostSelect(_ context.Context, rows []map[string]any) ([]map[string]any, error) {
	return rows, nil
}
