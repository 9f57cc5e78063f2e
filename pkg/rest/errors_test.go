package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/query"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err         error
		name        string
		wantName    string
		wantCode    string
		wantStatus  int
		wantMessage bool
	}{
		{
			name:        "field errors",
			err:         entity.Errors{{Field: "ip", Code: entity.CodeTypeMismatch, Message: `field "ip" expects a string`}},
			wantName:    NameValidation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: true,
		},
		{
			name:        "malformed filter",
			err:         fmt.Errorf("%w: unexpected token", query.ErrInvalidFilter),
			wantName:    NameValidation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: true,
		},
		{
			name:        "malformed sort",
			err:         fmt.Errorf("%w: not an array", query.ErrInvalidSort),
			wantName:    NameValidation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: true,
		},
		{
			name:        "malformed pagination",
			err:         fmt.Errorf("%w: page must be positive", query.ErrInvalidPage),
			wantName:    NameValidation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: true,
		},
		{
			name:        "malformed body",
			err:         fmt.Errorf("%w: expected object", query.ErrInvalidBody),
			wantName:    NameValidation,
			wantStatus:  http.StatusBadRequest,
			wantMessage: true,
		},
		{
			name:        "not found helper",
			err:         NotFound(),
			wantName:    NameNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: true,
		},
		{
			name:        "not implemented helper",
			err:         NotImplemented("full-record replace is not supported, use PATCH"),
			wantName:    NameNotImplemented,
			wantStatus:  http.StatusNotImplemented,
			wantMessage: true,
		},
		{
			name:       "bad entity config",
			err:        fmt.Errorf("%w: entity %q has no primary key", entity.ErrConfig, "users"),
			wantName:   NameConfiguration,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unset query mode",
			err:        query.ErrNoMode,
			wantName:   NameConfiguration,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unique violation",
			err:        &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
			wantName:   NameDatabase,
			wantCode:   "23505",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not null violation",
			err:        &pgconn.PgError{Code: "23502", Message: "null value in column"},
			wantName:   NameDatabase,
			wantCode:   "23502",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "undefined table",
			err:        &pgconn.PgError{Code: "42P01", Message: `relation "nope" does not exist`},
			wantName:   NameDatabase,
			wantCode:   "42P01",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "anything else",
			err:        errors.New("broken pipe"),
			wantName:   NameInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classify(tt.err)
			assert.Equal(t, tt.wantName, e.Name)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantStatus, e.Status())
			if tt.wantMessage {
				assert.NotEmpty(t, e.Message)
			} else {
				assert.Empty(t, e.Message, "message must not leak")
			}
		})
	}
}

func TestClassifyPassesThroughTypedErrors(t *testing.T) {
	custom := Validationf("tenant %q is read-only", "acme")

	assert.Same(t, custom, classify(custom))

	wrapped := fmt.Errorf("hook: %w", custom)
	assert.Same(t, custom, classify(wrapped))
}

func TestClassifyKeepsCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505"}
	e := classify(fmt.Errorf("insert session: %w", cause))

	assert.Equal(t, NameDatabase, e.Name)
	assert.ErrorIs(t, e, cause)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NotFoundError: no matching record", NotFound().Error())
	assert.Equal(t, "DatabaseError", (&Error{Name: NameDatabase}).Error())
}

func TestErrorStatusDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, (&Error{Name: NameInternal}).Status())
}
