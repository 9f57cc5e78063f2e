// Package entity holds the static per-table configuration a REST binding is
// generated from: the backing table, the primary-key policy, the field rules
// request data is validated against, and the integrator's lifecycle hooks.
package entity

import (
	"strings"

	"github.com/restq/restq/pkg/query"
)

// Field types.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Config declares one REST-exposed table. It is created once at startup and
// read-only afterwards.
type Config struct {
	// Name is the route segment the entity is served under. Defaults to the
	// table name without its schema qualifier.
	Name string `mapstructure:"name"`
	// Table is the backing relation, optionally schema-qualified
	// ("public.sessions").
	Table string `mapstructure:"table"`

	// PrimaryKey names the key field. With neither PrimaryKeyAuto nor
	// PrimaryKeyGUID set, the caller must supply the key value on create.
	PrimaryKey string `mapstructure:"primaryKey"`
	// PrimaryKeyAuto marks the key as database-generated (serial/identity).
	PrimaryKeyAuto bool `mapstructure:"primaryKeyAuto"`
	// PrimaryKeyGUID makes the server fill omitted key values with a random
	// UUID on create.
	PrimaryKeyGUID bool `mapstructure:"primaryKeyGuid"`

	// Fields maps field names to their validation rules. Must not be empty.
	Fields map[string]FieldRule `mapstructure:"fields"`

	// CreatedAtField and UpdatedAtField, when set, are stamped with the
	// current UTC time on insert and update respectively.
	CreatedAtField string `mapstructure:"createdAtField"`
	UpdatedAtField string `mapstructure:"updatedAtField"`

	// Upsert, when set, turns inserts into ON CONFLICT upserts.
	Upsert *query.Upsert `mapstructure:"upsert"`

	// DefaultPage applies when a request carries no pagination parameter.
	// Nil means unpaginated listing.
	DefaultPage *query.Page `mapstructure:"defaultPagination"`

	// Pool selects a named connection pool; empty means the active pool.
	Pool string `mapstructure:"pool"`

	// Hooks intercept the request pipeline. Nil means NopHooks.
	Hooks Hooks `mapstructure:"-"`
}

// FieldRule validates one field of request payloads and filters.
type FieldRule struct {
	Type     string `mapstructure:"type"`
	Required bool   `mapstructure:"required"`

	// Format names a well-known string format: uuid, email, ipv4, hostname
	// or uri.
	Format string `mapstructure:"format"`

	// Lowercase and Trim normalize string values before persistence; the
	// normalized value is what gets stored and matched.
	Lowercase bool `mapstructure:"lowercase"`
	Trim      bool `mapstructure:"trim"`

	Min    *float64 `mapstructure:"min"`
	Max    *float64 `mapstructure:"max"`
	MinLen *int     `mapstructure:"minLen"`
	MaxLen *int     `mapstructure:"maxLen"`

	Enum []string `mapstructure:"enum"`
}

// routeName derives the route segment for a config without an explicit Name.
func (c Config) routeName() string {
	if c.Name != "" {
		return c.Name
	}
	if _, table, ok := strings.Cut(c.Table, "."); ok {
		return table
	}
	return c.Table
}
