package rest

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/metrics"
	"github.com/restq/restq/pkg/pgx"
	"github.com/restq/restq/pkg/query"
)

// execute builds the command's SQL, runs it on the entity's connection, and
// hands the decoded rows to the postSelect hook.
func (s *Server) execute(ctx context.Context, b *entity.Binding, cmd *query.Command) ([]map[string]any, error) {
	conn, err := s.conn(b.Pool)
	if err != nil {
		return nil, err
	}

	sql, args, err := query.Build(cmd)
	if err != nil {
		return nil, err
	}

	pgRows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		metrics.QueryErrors.WithLabelValues(b.Name).Inc()
		return nil, err
	}
	rows, err := pgx.RowsToMaps(pgRows)
	if err != nil {
		return nil, err
	}
	return b.Hooks.PostSelect(ctx, rows)
}

// countRows runs the command's filter through a count statement.
func (s *Server) countRows(ctx context.Context, b *entity.Binding, cmd *query.Command) (int64, error) {
	conn, err := s.conn(b.Pool)
	if err != nil {
		return 0, err
	}

	countCmd := *cmd
	countCmd.Mode = query.ModeSelectCount
	sql, args, err := query.Build(&countCmd)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := conn.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		metrics.QueryErrors.WithLabelValues(b.Name).Inc()
		return 0, err
	}
	return total, nil
}

// handleList serves filtered, sorted, paginated listings. With pagination in
// play the filter is counted first so the envelope can report totalRows and
// pageCount.
func (s *Server) handleList(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeSelect, paginate: true})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		var page *Pagination
		if cmd.Page != nil {
			total, err := s.countRows(r.Context(), b, cmd)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			page = &Pagination{
				Page:      cmd.Page.Page,
				PerPage:   cmd.Page.PerPage,
				TotalRows: total,
				PageCount: cmd.Page.PageCount(total),
			}
		}

		rows, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondRows(w, http.StatusOK, rows, page)
	})
}

// handleRead serves one record by primary key.
func (s *Server) handleRead(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeSelect, id: r.PathValue("id")})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		rows, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if len(rows) == 0 {
			s.respondError(w, r, NotFound())
			return
		}
		respondData(w, http.StatusOK, rows[0])
	})
}

// handleCreate inserts one record or a batch. The response mirrors the
// payload shape: an object in, the created object out; an array in, an
// array out.
func (s *Server) handleCreate(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		single := isSingleObject(body)

		rows, err := query.DecodeRows(body)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := b.ValidateCreate(rows); err != nil {
			s.respondError(w, r, err)
			return
		}
		for i := range rows {
			if rows[i], err = b.Hooks.PreInsert(r.Context(), rows[i]); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		b.ApplyInsertDefaults(rows)

		cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeInsert, rows: rows})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		out, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if single && len(out) == 1 {
			respondData(w, http.StatusCreated, out[0])
			return
		}
		respondRows(w, http.StatusCreated, out, nil)
	})
}

// handleUpdateOne patches one record by primary key.
func (s *Server) handleUpdateOne(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		row, err := s.updatePayload(r, b)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		cmd, err := s.buildCommand(r, b, commandInput{
			mode: query.ModeUpdate,
			id:   r.PathValue("id"),
			rows: []query.Row{row},
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		out, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if len(out) == 0 {
			s.respondError(w, r, NotFound())
			return
		}
		respondData(w, http.StatusOK, out[0])
	})
}

// handleUpdateMany patches every record the filter matches. Zero matches is
// a success with rowCount 0, unlike the keyed variant.
func (s *Server) handleUpdateMany(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		row, err := s.updatePayload(r, b)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		cmd, err := s.buildCommand(r, b, commandInput{
			mode: query.ModeUpdate,
			bulk: true,
			rows: []query.Row{row},
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		out, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondRows(w, http.StatusOK, out, nil)
	})
}

// updatePayload decodes and validates a PATCH body, runs the preUpdate hook,
// and stamps the update timestamp.
func (s *Server) updatePayload(r *http.Request, b *entity.Binding) (query.Row, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return query.Row{}, err
	}
	row, err := query.DecodeRow(body)
	if err != nil {
		return query.Row{}, err
	}
	if err := b.ValidateUpdate(&row); err != nil {
		return query.Row{}, err
	}
	if row, err = b.Hooks.PreUpdate(r.Context(), row); err != nil {
		return query.Row{}, err
	}
	b.ApplyUpdateDefaults(&row)
	return row, nil
}

// handleReplace rejects full-record replacement.
func (s *Server) handleReplace(*entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, NotImplemented("full-record replace is not supported, use PATCH"))
	})
}

// handleDeleteOne removes one record by primary key and returns it.
func (s *Server) handleDeleteOne(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeDelete, id: r.PathValue("id")})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		out, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if len(out) == 0 {
			s.respondError(w, r, NotFound())
			return
		}
		respondData(w, http.StatusOK, out[0])
	})
}

// handleDeleteMany removes every record the filter matches and returns them.
func (s *Server) handleDeleteMany(b *entity.Binding) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeDelete, bulk: true})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		out, err := s.execute(r.Context(), b, cmd)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondRows(w, http.StatusOK, out, nil)
	})
}

// isSingleObject reports whether the payload is one JSON object rather than
// an array.
func isSingleObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
