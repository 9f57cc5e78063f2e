package rest

import (
	"net/http"
	"strings"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/query"
)

// Query parameter names.
const (
	paramFilter  = "filter"
	paramSort    = "sort"
	paramPage    = "pagination"
	paramColumns = "columns"
)

// commandInput describes what a handler wants assembled from the request.
type commandInput struct {
	mode query.Mode
	// id is the path-derived primary key value; empty for list and bulk
	// operations.
	id string
	// bulk refuses to proceed on an empty filter, so a mass mutation has
	// to be asked for explicitly.
	bulk bool
	// paginate applies the entity's default pagination when the request
	// carries none.
	paginate bool
	// rows is the decoded payload for insert and update modes.
	rows []query.Row
}

// buildCommand turns a request's URL into a validated Command: parse filter,
// sort, pagination and columns, merge the path-derived key filter, validate
// against the entity's schema, enforce the bulk-filter guard, and give the
// preQuery hook the last word.
func (s *Server) buildCommand(r *http.Request, b *entity.Binding, in commandInput) (*query.Command, error) {
	q := r.URL.Query()

	filter := &query.Filter{}
	if raw := q.Get(paramFilter); raw != "" {
		parsed, err := query.ParseFilter([]byte(raw))
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	if in.id != "" {
		filter = mergeFilters(pathFilter(b, in.id), filter)
	}
	if err := b.ValidateFilter(filter); err != nil {
		return nil, err
	}

	cmd := &query.Command{
		Mode:   in.mode,
		Table:  b.Table,
		Filter: filter,
		Rows:   in.rows,
	}

	if in.mode == query.ModeSelect {
		if raw := q.Get(paramSort); raw != "" {
			sort, err := query.ParseSort([]byte(raw))
			if err != nil {
				return nil, err
			}
			if err := b.ValidateSort(sort); err != nil {
				return nil, err
			}
			cmd.Sort = sort
		}

		if in.paginate {
			cmd.Page = b.DefaultPage
			if raw := q.Get(paramPage); raw != "" {
				page, err := query.ParsePage([]byte(raw))
				if err != nil {
					return nil, err
				}
				cmd.Page = page
			}
		}

		if raw := q.Get(paramColumns); raw != "" {
			cmd.Columns = splitColumns(raw)
			if err := b.ValidateColumns(cmd.Columns); err != nil {
				return nil, err
			}
		}
	}

	if in.mode == query.ModeInsert {
		cmd.Upsert = b.Upsert
	}

	if in.bulk && cmd.Filter.IsEmpty() {
		return nil, Validationf("bulk %s requires a non-empty filter", in.mode)
	}

	if err := b.Hooks.PreQuery(r.Context(), cmd, r); err != nil {
		return nil, err
	}
	return cmd, nil
}

// pathFilter pins the primary key to the path segment value.
func pathFilter(b *entity.Binding, id string) *query.Filter {
	return &query.Filter{Conds: []query.Cond{{
		Field: b.PrimaryKey,
		Value: query.Value{Kind: query.KindScalar, Scalar: id},
	}}}
}

// mergeFilters lays the path-derived filter over the query-string one. On
// fields both mention the path wins; everything else is kept and ANDed.
func mergeFilters(path, parsed *query.Filter) *query.Filter {
	if parsed.IsEmpty() {
		return path
	}

	merged := &query.Filter{Or: parsed.Or}
	merged.Conds = append(merged.Conds, path.Conds...)
	for _, c := range parsed.Conds {
		if !hasField(path, c.Field) {
			merged.Conds = append(merged.Conds, c)
		}
	}
	return merged
}

func hasField(f *query.Filter, field string) bool {
	for _, c := range f.Conds {
		if c.Field == field {
			return true
		}
	}
	return false
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			columns = append(columns, p)
		}
	}
	return columns
}
