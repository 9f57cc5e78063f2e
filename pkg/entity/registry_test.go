package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restq/restq/pkg/query"
)

func TestNewRegistryDerivesRouteName(t *testing.T) {
	r, err := NewRegistry(Config{
		Table:      "public.devices",
		PrimaryKey: "id",
		Fields:     map[string]FieldRule{"id": {Type: TypeString}},
	})
	require.NoError(t, err)

	_, ok := r.Get("devices")
	assert.True(t, ok)
	_, ok = r.Get("public.devices")
	assert.False(t, ok)
}

func TestNewRegistryExplicitNameWins(t *testing.T) {
	r, err := NewRegistry(Config{
		Name:       "things",
		Table:      "public.devices",
		PrimaryKey: "id",
		Fields:     map[string]FieldRule{"id": {Type: TypeString}},
	})
	require.NoError(t, err)

	_, ok := r.Get("things")
	assert.True(t, ok)
}

func TestNewRegistryDefaultsHooks(t *testing.T) {
	r, err := NewRegistry(Config{
		Table:      "devices",
		PrimaryKey: "id",
		Fields:     map[string]FieldRule{"id": {Type: TypeString}},
	})
	require.NoError(t, err)

	b, _ := r.Get("devices")
	assert.NotNil(t, b.Hooks)
}

func TestNewRegistryListKeepsOrder(t *testing.T) {
	fields := map[string]FieldRule{"id": {Type: TypeString}}
	r, err := NewRegistry(
		Config{Table: "zebras", PrimaryKey: "id", Fields: fields},
		Config{Table: "apples", PrimaryKey: "id", Fields: fields},
	)
	require.NoError(t, err)

	bindings := r.List()
	require.Len(t, bindings, 2)
	assert.Equal(t, "zebras", bindings[0].Name)
	assert.Equal(t, "apples", bindings[1].Name)
}

func TestNewRegistryRejectsBadConfigs(t *testing.T) {
	id := map[string]FieldRule{"id": {Type: TypeString}}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			"missing table",
			Config{PrimaryKey: "id", Fields: id},
			"table is required",
		},
		{
			"empty field schema",
			Config{Table: "t", PrimaryKey: "id"},
			"empty field schema",
		},
		{
			"missing primary key",
			Config{Table: "t", Fields: id},
			"no primary key",
		},
		{
			"primary key not a field",
			Config{Table: "t", PrimaryKey: "nope", Fields: id},
			`primary key "nope"`,
		},
		{
			"auto and guid together",
			Config{Table: "t", PrimaryKey: "id", PrimaryKeyAuto: true, PrimaryKeyGUID: true, Fields: id},
			"mutually exclusive",
		},
		{
			"unknown field type",
			Config{Table: "t", PrimaryKey: "id", Fields: map[string]FieldRule{"id": {Type: "uuid"}}},
			"unknown type",
		},
		{
			"unknown format",
			Config{Table: "t", PrimaryKey: "id", Fields: map[string]FieldRule{"id": {Type: TypeString, Format: "phone"}}},
			"unknown format",
		},
		{
			"format on number field",
			Config{Table: "t", PrimaryKey: "id", Fields: map[string]FieldRule{"id": {Type: TypeNumber, Format: "uuid"}}},
			"string fields only",
		},
		{
			"enum on integer field",
			Config{Table: "t", PrimaryKey: "id", Fields: map[string]FieldRule{"id": {Type: TypeInteger, Enum: []string{"a"}}}},
			"string fields only",
		},
		{
			"upsert without conflict columns",
			Config{Table: "t", PrimaryKey: "id", Fields: id, Upsert: &query.Upsert{}},
			"conflict column",
		},
		{
			"upsert column not a field",
			Config{Table: "t", PrimaryKey: "id", Fields: id, Upsert: &query.Upsert{ConflictColumns: []string{"nope"}}},
			`upsert column "nope"`,
		},
		{
			"non-positive default pagination",
			Config{Table: "t", PrimaryKey: "id", Fields: id, DefaultPage: &query.Page{Page: 0, PerPage: 10}},
			"positive page",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cfg)
			require.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	fields := map[string]FieldRule{"id": {Type: TypeString}}
	_, err := NewRegistry(
		Config{Table: "public.devices", PrimaryKey: "id", Fields: fields},
		Config{Table: "archive.devices", PrimaryKey: "id", Fields: fields},
	)
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSchemaDocument(t *testing.T) {
	b := usersBinding(t)
	doc := b.Schema()

	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, "id", doc.PrimaryKey)
	assert.True(t, doc.PrimaryKeyAuto)
	assert.False(t, doc.PrimaryKeyGUID)
	assert.Equal(t, []string{"email", "username"}, doc.Required)

	email := doc.Properties["email"]
	assert.Equal(t, TypeString, email.Type)
	assert.Equal(t, "email", email.Format)

	age := doc.Properties["age"]
	assert.Equal(t, TypeInteger, age.Type)
	require.NotNil(t, age.Minimum)
	assert.Equal(t, 0.0, *age.Minimum)
	require.NotNil(t, age.Maximum)
	assert.Equal(t, 150.0, *age.Maximum)

	role := doc.Properties["role"]
	assert.Equal(t, []string{"admin", "member"}, role.Enum)
}
