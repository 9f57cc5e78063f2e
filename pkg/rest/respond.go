package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/restq/restq/pkg/httputil"
)

// Envelope is the body shape every endpoint responds with. Error and Data
// are always present; RowCount and Pagination appear on list and bulk
// responses.
type Envelope struct {
	Error      *Error      `json:"error"`
	Data       any         `json:"data"`
	RowCount   *int        `json:"rowCount,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination echoes the applied window plus the filter's total row count.
type Pagination struct {
	Page      int   `json:"page"`
	PerPage   int   `json:"perPage"`
	TotalRows int64 `json:"totalRows"`
	PageCount int64 `json:"pageCount"`
}

func respond(w http.ResponseWriter, status int, env Envelope) {
	httputil.JSON(w, status, env)
}

// respondData writes a single-record success envelope.
func respondData(w http.ResponseWriter, status int, data any) {
	respond(w, status, Envelope{Data: data})
}

// respondRows writes a multi-record success envelope. A nil rows slice
// renders as an empty array, never null.
func respondRows(w http.ResponseWriter, status int, rows []map[string]any, page *Pagination) {
	if rows == nil {
		rows = []map[string]any{}
	}
	count := len(rows)
	respond(w, status, Envelope{Data: rows, RowCount: &count, Pagination: page})
}

// respondError classifies err, logs server-side failures, and writes the
// error envelope. Client errors pass through unlogged.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	if e.Status() >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respond(w, e.Status(), Envelope{Error: e})
}
