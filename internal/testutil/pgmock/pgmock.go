// Package pgmock provides in-memory stand-ins for the pgx execution surface
// so handler logic can be tested without a database.
package pgmock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Rows replays fixed result rows through the pgx.Rows interface.
type Rows struct {
	columns []string
	rows    [][]any
	current []any
	idx     int
	err     error
	tag     pgconn.CommandTag
}

var _ pgx.Rows = (*Rows)(nil)

// NewRows builds a result set. Each row must have one value per column.
func NewRows(columns []string, rows ...[]any) *Rows {
	return &Rows{columns: columns, rows: rows}
}

// FailWith makes iteration stop with err after all rows are consumed.
func (r *Rows) FailWith(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Close()                        {}
func (r *Rows) Err() error                    { return r.err }
func (r *Rows) CommandTag() pgconn.CommandTag { return r.tag }
func (r *Rows) RawValues() [][]byte           { return nil }
func (r *Rows) Conn() *pgx.Conn               { return nil }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return fields
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.current = r.rows[r.idx]
	r.idx++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.current == nil {
		return nil, fmt.Errorf("pgmock: Values before Next")
	}
	return r.current, nil
}

func (r *Rows) Scan(dest ...any) error {
	if r.current == nil {
		return fmt.Errorf("pgmock: Scan before Next")
	}
	if len(dest) != len(r.current) {
		return fmt.Errorf("pgmock: %d destinations for %d values", len(dest), len(r.current))
	}
	for i, d := range dest {
		if err := assign(d, r.current[i]); err != nil {
			return err
		}
	}
	return nil
}

// Row adapts a Rows to the single-row pgx.Row interface.
type Row struct {
	rows *Rows
	err  error
}

func (r Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

// Conn scripts responses for successive statements and records what was
// executed. Each Query/QueryRow/Exec consumes one queued result in FIFO
// order; running dry is an error so tests fail loudly.
type Conn struct {
	mu    sync.Mutex
	calls []Call
	queue []result
}

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
}

type result struct {
	rows *Rows
	tag  pgconn.CommandTag
	err  error
}

// QueueRows schedules rows as the next result.
func (c *Conn) QueueRows(rows *Rows) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, result{rows: rows})
}

// QueueError schedules a failure as the next result.
func (c *Conn) QueueError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, result{err: err})
}

// QueueTag schedules an Exec result such as "DELETE 2".
func (c *Conn) QueueTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, result{tag: pgconn.NewCommandTag(tag)})
}

// Calls returns the statements executed so far.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Conn) next(sql string, args []any) (result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{SQL: sql, Args: args})
	if len(c.queue) == 0 {
		return result{}, fmt.Errorf("pgmock: no queued result for %q", sql)
	}
	res := c.queue[0]
	c.queue = c.queue[1:]
	return res, nil
}

func (c *Conn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	res, err := c.next(sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return res.tag, res.err
}

func (c *Conn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	res, err := c.next(sql, args)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	if res.rows == nil {
		res.rows = NewRows(nil)
	}
	return res.rows, nil
}

func (c *Conn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	res, err := c.next(sql, args)
	if err != nil {
		return Row{err: err}
	}
	if res.err != nil {
		return Row{err: res.err}
	}
	if res.rows == nil {
		res.rows = NewRows(nil)
	}
	return Row{rows: res.rows}
}

func assign(dest, value any) error {
	switch d := dest.(type) {
	case *any:
		*d = value
	case *int64:
		switch v := value.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		default:
			return fmt.Errorf("pgmock: cannot scan %T into *int64", value)
		}
	case *int:
		switch v := value.(type) {
		case int64:
			*d = int(v)
		case int:
			*d = v
		default:
			return fmt.Errorf("pgmock: cannot scan %T into *int", value)
		}
	case *string:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("pgmock: cannot scan %T into *string", value)
		}
		*d = v
	case *bool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("pgmock: cannot scan %T into *bool", value)
		}
		*d = v
	case *float64:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("pgmock: cannot scan %T into *float64", value)
		}
		*d = v
	case *time.Time:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("pgmock: cannot scan %T into *time.Time", value)
		}
		*d = v
	default:
		return fmt.Errorf("pgmock: unsupported scan destination %T", dest)
	}
	return nil
}
