package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/query"
)

func testRegistry(t *testing.T, hooks entity.Hooks) *entity.Registry {
	t.Helper()
	minLen := 3
	registry, err := entity.NewRegistry(
		entity.Config{
			Table:          "public.sessions",
			PrimaryKey:     "session_id",
			PrimaryKeyGUID: true,
			CreatedAtField: "created_at",
			UpdatedAtField: "updated_at",
			Hooks:          hooks,
			Fields: map[string]entity.FieldRule{
				"session_id":   {Type: entity.TypeString, Format: "uuid"},
				"ip":           {Type: entity.TypeString, Format: "ipv4"},
				"session_data": {Type: entity.TypeString},
				"created_at":   {Type: entity.TypeString},
				"updated_at":   {Type: entity.TypeString},
			},
		},
		entity.Config{
			Table:          "public.users",
			PrimaryKey:     "id",
			PrimaryKeyAuto: true,
			DefaultPage:    &query.Page{Page: 1, PerPage: 2},
			Hooks:          hooks,
			Fields: map[string]entity.FieldRule{
				"id":       {Type: entity.TypeInteger},
				"email":    {Type: entity.TypeString, Required: true, Format: "email", Trim: true, Lowercase: true},
				"username": {Type: entity.TypeString, Required: true, MinLen: &minLen},
				"age":      {Type: entity.TypeInteger},
				"active":   {Type: entity.TypeBoolean},
			},
		},
	)
	require.NoError(t, err)
	return registry
}

func testBinding(t *testing.T, name string) *entity.Binding {
	t.Helper()
	b, ok := testRegistry(t, nil).Get(name)
	require.True(t, ok)
	return b
}

func listRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	target := path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func newBareServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(testRegistry(t, nil), nil, WithLogger(zap.NewNop()))
}

func TestBuildCommandDefaults(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "sessions")

	cmd, err := s.buildCommand(listRequest(t, "/sessions", nil), b, commandInput{mode: query.ModeSelect, paginate: true})
	require.NoError(t, err)

	assert.Equal(t, query.ModeSelect, cmd.Mode)
	assert.Equal(t, "public.sessions", cmd.Table)
	assert.True(t, cmd.Filter.IsEmpty())
	assert.Nil(t, cmd.Page, "sessions has no default pagination")
	assert.Empty(t, cmd.Columns)
}

func TestBuildCommandPathIDPinsPrimaryKey(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "sessions")
	id := "7a54ad25-c326-45f1-8b5b-ab0a50da7d1f"

	cmd, err := s.buildCommand(listRequest(t, "/sessions/"+id, nil), b, commandInput{mode: query.ModeSelect, id: id})
	require.NoError(t, err)

	require.Len(t, cmd.Filter.Conds, 1)
	assert.Equal(t, "session_id", cmd.Filter.Conds[0].Field)
	assert.Equal(t, id, cmd.Filter.Conds[0].Value.Scalar)
}

func TestBuildCommandPathIDOverridesFilter(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "sessions")
	id := "7a54ad25-c326-45f1-8b5b-ab0a50da7d1f"

	params := map[string]string{
		"filter": `{"session_id": "b54a61a2-0000-0000-0000-000000000000", "ip": "10.0.0.1"}`,
	}
	cmd, err := s.buildCommand(listRequest(t, "/sessions/"+id, params), b, commandInput{mode: query.ModeSelect, id: id})
	require.NoError(t, err)

	require.Len(t, cmd.Filter.Conds, 2)
	assert.Equal(t, "session_id", cmd.Filter.Conds[0].Field)
	assert.Equal(t, id, cmd.Filter.Conds[0].Value.Scalar, "path value wins over the filter param")
	assert.Equal(t, "ip", cmd.Filter.Conds[1].Field)
}

func TestBuildCommandMalformedFilter(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "sessions")

	_, err := s.buildCommand(listRequest(t, "/sessions", map[string]string{"filter": `{"ip":`}), b, commandInput{mode: query.ModeSelect})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestBuildCommandFilterCoercion(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"filter": `{"age": "42"}`}), b, commandInput{mode: query.ModeSelect})
	require.NoError(t, err)

	require.Len(t, cmd.Filter.Conds, 1)
	assert.Equal(t, int64(42), cmd.Filter.Conds[0].Value.Scalar, "query-string numbers arrive as text and are coerced")
}

func TestBuildCommandFilterTypeMismatch(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	_, err := s.buildCommand(listRequest(t, "/users", map[string]string{"filter": `{"age": "not-a-number"}`}), b, commandInput{mode: query.ModeSelect})
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}

func TestBuildCommandSort(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"sort": `{"age": -1, "email": 1}`}), b, commandInput{mode: query.ModeSelect})
	require.NoError(t, err)

	require.Len(t, cmd.Sort, 2)
	assert.Equal(t, "age", cmd.Sort[0].Field)
	assert.True(t, cmd.Sort[0].Desc)
	assert.Equal(t, "email", cmd.Sort[1].Field)
	assert.False(t, cmd.Sort[1].Desc)
}

func TestBuildCommandSortUnknownField(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	_, err := s.buildCommand(listRequest(t, "/users", map[string]string{"sort": `{"height": 1}`}), b, commandInput{mode: query.ModeSelect})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "height")
}

func TestBuildCommandPagination(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	t.Run("default applies", func(t *testing.T) {
		cmd, err := s.buildCommand(listRequest(t, "/users", nil), b, commandInput{mode: query.ModeSelect, paginate: true})
		require.NoError(t, err)
		require.NotNil(t, cmd.Page)
		assert.Equal(t, 1, cmd.Page.Page)
		assert.Equal(t, 2, cmd.Page.PerPage)
	})

	t.Run("param overrides default", func(t *testing.T) {
		cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"pagination": `{"page": 3, "perPage": 10}`}), b, commandInput{mode: query.ModeSelect, paginate: true})
		require.NoError(t, err)
		require.NotNil(t, cmd.Page)
		assert.Equal(t, 3, cmd.Page.Page)
		assert.Equal(t, 10, cmd.Page.PerPage)
	})

	t.Run("invalid param rejected", func(t *testing.T) {
		_, err := s.buildCommand(listRequest(t, "/users", map[string]string{"pagination": `{"page": 0}`}), b, commandInput{mode: query.ModeSelect, paginate: true})
		assert.ErrorIs(t, err, query.ErrInvalidPage)
	})

	t.Run("ignored outside listing", func(t *testing.T) {
		cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"pagination": `{"page": 3, "perPage": 10}`}), b, commandInput{mode: query.ModeDelete, id: "4"})
		require.NoError(t, err)
		assert.Nil(t, cmd.Page)
	})
}

func TestBuildCommandColumns(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"columns": "id, email"}), b, commandInput{mode: query.ModeSelect})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, cmd.Columns)

	_, err = s.buildCommand(listRequest(t, "/users", map[string]string{"columns": "id,password"}), b, commandInput{mode: query.ModeSelect})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestBuildCommandBulkGuard(t *testing.T) {
	s := newBareServer(t)
	b := testBinding(t, "users")

	_, err := s.buildCommand(listRequest(t, "/users", nil), b, commandInput{mode: query.ModeDelete, bulk: true})
	require.Error(t, err)
	e := classify(err)
	assert.Equal(t, NameValidation, e.Name)
	assert.Contains(t, e.Message, "bulk delete requires a non-empty filter")

	cmd, err := s.buildCommand(listRequest(t, "/users", map[string]string{"filter": `{"active": false}`}), b, commandInput{mode: query.ModeDelete, bulk: true})
	require.NoError(t, err)
	assert.False(t, cmd.Filter.IsEmpty())
}

func TestBuildCommandInsertCarriesUpsert(t *testing.T) {
	s := NewServer(upsertRegistry(t), nil, WithLogger(zap.NewNop()))
	b, ok := s.registry.Get("settings")
	require.True(t, ok)

	row := query.NewRow()
	row.Set("key", "volume")
	row.Set("value", "11")

	cmd, err := s.buildCommand(listRequest(t, "/settings", nil), b, commandInput{mode: query.ModeInsert, rows: []query.Row{row}})
	require.NoError(t, err)
	require.NotNil(t, cmd.Upsert)
	assert.Equal(t, []string{"key"}, cmd.Upsert.ConflictColumns)
}

func upsertRegistry(t *testing.T) *entity.Registry {
	t.Helper()
	registry, err := entity.NewRegistry(entity.Config{
		Table:      "settings",
		PrimaryKey: "key",
		Upsert:     &query.Upsert{ConflictColumns: []string{"key"}, UpdateColumns: []string{"value"}},
		Fields: map[string]entity.FieldRule{
			"key":   {Type: entity.TypeString},
			"value": {Type: entity.TypeString},
		},
	})
	require.NoError(t, err)
	return registry
}

type tenantHooks struct {
	entity.NopHooks
}

func (tenantHooks) PreQuery(_ context.Context, cmd *query.Command, r *http.Request) error {
	cmd.Filter.Conds = append(cmd.Filter.Conds, query.Cond{
		Field: "tenant",
		Value: query.Value{Kind: query.KindScalar, Scalar: r.Header.Get("X-Tenant")},
	})
	return nil
}

func TestBuildCommandPreQueryHook(t *testing.T) {
	registry := testRegistry(t, tenantHooks{})
	s := NewServer(registry, nil, WithLogger(zap.NewNop()))
	b, ok := registry.Get("users")
	require.True(t, ok)

	r := listRequest(t, "/users", nil)
	r.Header.Set("X-Tenant", "acme")

	cmd, err := s.buildCommand(r, b, commandInput{mode: query.ModeSelect})
	require.NoError(t, err)

	require.Len(t, cmd.Filter.Conds, 1)
	assert.Equal(t, "tenant", cmd.Filter.Conds[0].Field)
	assert.Equal(t, "acme", cmd.Filter.Conds[0].Value.Scalar)
}
