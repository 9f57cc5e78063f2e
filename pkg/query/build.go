package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrNoMode reports a Command built without a Mode. This is a programming
// error in the caller, not bad request input.
var ErrNoMode = errors.New("query mode not set")

// Build renders cmd into SQL text and its positional parameter list. The
// parameter index is one running counter across the whole statement: filter
// parameters are numbered first, data parameters after them.
func Build(cmd *Command) (string, []any, error) {
	b := newBuilder(cmd.Table)
	switch cmd.Mode {
	case ModeSelect:
		return b.buildSelect(cmd)
	case ModeSelectCount:
		return b.buildCount(cmd)
	case ModeInsert:
		return b.buildInsert(cmd)
	case ModeUpdate:
		return b.buildUpdate(cmd)
	case ModeDelete:
		return b.buildDelete(cmd)
	default:
		return "", nil, ErrNoMode
	}
}

type builder struct {
	schema    string
	table     string
	args      []any
	nextIndex int
}

func newBuilder(table string) *builder {
	schema := "public"
	if s, t, ok := strings.Cut(table, "."); ok {
		schema, table = s, t
	}
	return &builder{schema: schema, table: table, nextIndex: 1}
}

// bind appends v to the parameter list and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	placeholder := fmt.Sprintf("$%d", b.nextIndex)
	b.nextIndex++
	return placeholder
}

func (b *builder) tableIdentifier() string {
	return pgx.Identifier{b.schema, b.table}.Sanitize()
}

// fieldExpr renders a column reference, applying the ->> extraction when the
// field carries a JSON path. Only a single extraction level is supported.
func fieldExpr(field string) (string, error) {
	col, sub, ok := SplitJSONPath(field)
	if !ok {
		return pgx.Identifier{field}.Sanitize(), nil
	}
	if col == "" || sub == "" || strings.Contains(sub, "->>") {
		return "", fmt.Errorf("%w: malformed JSON path %q", ErrInvalidFilter, field)
	}
	return pgx.Identifier{col}.Sanitize() + "->>" + quoteLiteral(sub), nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *builder) buildSelect(cmd *Command) (string, []any, error) {
	var sql strings.Builder
	sql.WriteString("SELECT ")

	if len(cmd.Columns) > 0 {
		columns := make([]string, len(cmd.Columns))
		for i, col := range cmd.Columns {
			columns[i] = pgx.Identifier{col}.Sanitize()
		}
		sql.WriteString(strings.Join(columns, ", "))
	} else {
		sql.WriteString("*")
	}
	sql.WriteString(" FROM ")
	sql.WriteString(b.tableIdentifier())

	if err := b.writeWhere(&sql, cmd.Filter); err != nil {
		return "", nil, err
	}

	if len(cmd.Sort) > 0 {
		orderClauses := make([]string, len(cmd.Sort))
		for i, key := range cmd.Sort {
			expr, err := fieldExpr(key.Field)
			if err != nil {
				return "", nil, err
			}
			direction := " ASC"
			if key.Desc {
				direction = " DESC"
			}
			orderClauses[i] = expr + direction
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(orderClauses, ", "))
	}

	if cmd.Page != nil {
		sql.WriteString(" LIMIT ")
		sql.WriteString(b.bind(cmd.Page.PerPage))
		if offset := cmd.Page.Offset(); offset > 0 {
			sql.WriteString(" OFFSET ")
			sql.WriteString(b.bind(offset))
		}
	}

	return sql.String(), b.args, nil
}

func (b *builder) buildCount(cmd *Command) (string, []any, error) {
	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*) FROM ")
	sql.WriteString(b.tableIdentifier())
	if err := b.writeWhere(&sql, cmd.Filter); err != nil {
		return "", nil, err
	}
	return sql.String(), b.args, nil
}

func (b *builder) buildInsert(cmd *Command) (string, []any, error) {
	if len(cmd.Rows) == 0 {
		return "", nil, fmt.Errorf("insert requires at least one row")
	}

	columns := cmd.Rows[0].Keys()
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("insert requires at least one column")
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(b.tableIdentifier())
	sql.WriteString(" (")
	sql.WriteString(strings.Join(quoted, ", "))
	sql.WriteString(") VALUES ")

	groups := make([]string, len(cmd.Rows))
	for i, row := range cmd.Rows {
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			value, ok := row.Get(col)
			if !ok {
				return "", nil, fmt.Errorf("row %d is missing column %q", i, col)
			}
			placeholders[j] = b.bind(value)
		}
		groups[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	sql.WriteString(strings.Join(groups, ", "))

	if cmd.Upsert != nil {
		if err := writeUpsert(&sql, cmd.Upsert); err != nil {
			return "", nil, err
		}
	}

	sql.WriteString(" RETURNING *")
	return sql.String(), b.args, nil
}

func writeUpsert(sql *strings.Builder, upsert *Upsert) error {
	if len(upsert.ConflictColumns) == 0 {
		return fmt.Errorf("upsert requires at least one conflict column")
	}
	conflict := make([]string, len(upsert.ConflictColumns))
	for i, col := range upsert.ConflictColumns {
		conflict[i] = pgx.Identifier{col}.Sanitize()
	}
	sql.WriteString(" ON CONFLICT (")
	sql.WriteString(strings.Join(conflict, ", "))
	sql.WriteString(")")

	if len(upsert.UpdateColumns) == 0 {
		sql.WriteString(" DO NOTHING")
		return nil
	}
	assignments := make([]string, len(upsert.UpdateColumns))
	for i, col := range upsert.UpdateColumns {
		quoted := pgx.Identifier{col}.Sanitize()
		assignments[i] = quoted + " = EXCLUDED." + quoted
	}
	sql.WriteString(" DO UPDATE SET ")
	sql.WriteString(strings.Join(assignments, ", "))
	return nil
}

func (b *builder) buildUpdate(cmd *Command) (string, []any, error) {
	if len(cmd.Rows) != 1 {
		return "", nil, fmt.Errorf("update requires exactly one row, got %d", len(cmd.Rows))
	}
	row := cmd.Rows[0]
	if row.Len() == 0 {
		return "", nil, fmt.Errorf("update requires at least one column")
	}

	// WHERE is rendered first so filter parameters take the low indexes,
	// even though SET precedes WHERE in the statement text.
	where, err := b.whereClause(cmd.Filter)
	if err != nil {
		return "", nil, err
	}

	setClauses := make([]string, 0, row.Len())
	for _, col := range row.Keys() {
		value, _ := row.Get(col)
		setClauses = append(setClauses, pgx.Identifier{col}.Sanitize()+" = "+b.bind(value))
	}

	var sql strings.Builder
	sql.WriteString("UPDATE ")
	sql.WriteString(b.tableIdentifier())
	sql.WriteString(" SET ")
	sql.WriteString(strings.Join(setClauses, ", "))
	sql.WriteString(where)
	sql.WriteString(" RETURNING *")
	return sql.String(), b.args, nil
}

func (b *builder) buildDelete(cmd *Command) (string, []any, error) {
	var sql strings.Builder
	sql.WriteString("DELETE FROM ")
	sql.WriteString(b.tableIdentifier())
	if err := b.writeWhere(&sql, cmd.Filter); err != nil {
		return "", nil, err
	}
	sql.WriteString(" RETURNING *")
	return sql.String(), b.args, nil
}

func (b *builder) writeWhere(sql *strings.Builder, f *Filter) error {
	where, err := b.whereClause(f)
	if err != nil {
		return err
	}
	sql.WriteString(where)
	return nil
}

// whereClause renders " WHERE ..." for f, or "" when f constrains nothing.
func (b *builder) whereClause(f *Filter) (string, error) {
	if f.IsEmpty() {
		return "", nil
	}
	expr, err := b.filterExpr(f)
	if err != nil {
		return "", err
	}
	return " WHERE " + expr, nil
}

func (b *builder) filterExpr(f *Filter) (string, error) {
	clauses := make([]string, 0, len(f.Conds)+1)
	for _, c := range f.Conds {
		field, err := fieldExpr(c.Field)
		if err != nil {
			return "", err
		}
		expr, err := b.valueExpr(field, c.Value)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, expr)
	}

	if len(f.Or) > 0 {
		alternatives := make([]string, len(f.Or))
		for i := range f.Or {
			expr, err := b.filterExpr(&f.Or[i])
			if err != nil {
				return "", err
			}
			alternatives[i] = "(" + expr + ")"
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), nil
}

func (b *builder) valueExpr(field string, v Value) (string, error) {
	switch v.Kind {
	case KindNull:
		return field + " IS NULL", nil
	case KindScalar:
		return field + " = " + b.bind(v.Scalar), nil
	case KindList:
		return b.inList(field, v.List), nil
	case KindOps:
		parts := make([]string, 0, len(v.Ops))
		for _, op := range v.Ops {
			expr, err := b.opExpr(field, op)
			if err != nil {
				return "", err
			}
			parts = append(parts, expr)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	default:
		return "", fmt.Errorf("%w: unhandled value kind %d", ErrInvalidFilter, v.Kind)
	}
}

// inList renders an IN predicate, or an unsatisfiable one for an empty list
// so that filtering on [] matches nothing instead of erroring.
func (b *builder) inList(field string, list []any) string {
	if len(list) == 0 {
		return "0=1"
	}
	placeholders := make([]string, len(list))
	for i, v := range list {
		placeholders[i] = b.bind(v)
	}
	return field + " IN (" + strings.Join(placeholders, ", ") + ")"
}

var comparisonSQL = map[string]string{
	OpGt:    ">",
	OpGte:   ">=",
	OpLt:    "<",
	OpLte:   "<=",
	OpNe:    "<>",
	OpLike:  "LIKE",
	OpILike: "ILIKE",
}

func (b *builder) opExpr(field string, op Op) (string, error) {
	switch op.Name {
	case OpOr:
		alternatives := op.Value.([]Value)
		parts := make([]string, len(alternatives))
		for i, alt := range alternatives {
			expr, err := b.valueExpr(field, alt)
			if err != nil {
				return "", err
			}
			parts[i] = expr
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case OpIn:
		return b.inList(field, op.Value.([]any)), nil
	case OpNe:
		if op.Value == nil {
			return field + " IS NOT NULL", nil
		}
		return field + " <> " + b.bind(op.Value), nil
	default:
		sqlOp, ok := comparisonSQL[op.Name]
		if !ok {
			return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, op.Name)
		}
		return field + " " + sqlOp + " " + b.bind(op.Value), nil
	}
}
