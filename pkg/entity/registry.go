package entity

import (
	"fmt"
	"sort"
)

var formatTags = map[string]string{
	"uuid":     "uuid",
	"email":    "email",
	"ipv4":     "ipv4",
	"hostname": "hostname",
	"uri":      "uri",
}

var fieldTypes = map[string]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeInteger: true,
	TypeBoolean: true,
}

// Binding is a validated Config plus what the validator precomputes from it.
type Binding struct {
	Config

	// fieldNames is sorted so validation error order is stable.
	fieldNames []string
}

// Registry maps entity names to their bindings. It is built once at startup
// and read-only afterwards; handlers receive it explicitly instead of going
// through package state.
type Registry struct {
	bindings map[string]*Binding
	order    []string
}

// NewRegistry validates every config and builds the registry. Any
// configuration problem fails construction with an error wrapping ErrConfig.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{bindings: make(map[string]*Binding, len(configs))}
	for _, cfg := range configs {
		b, err := newBinding(cfg)
		if err != nil {
			return nil, err
		}
		if _, ok := r.bindings[b.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate entity %q", ErrConfig, b.Name)
		}
		r.bindings[b.Name] = b
		r.order = append(r.order, b.Name)
	}
	return r, nil
}

// Get returns the binding registered under name.
func (r *Registry) Get(name string) (*Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// List returns all bindings in registration order.
func (r *Registry) List() []*Binding {
	bindings := make([]*Binding, len(r.order))
	for i, name := range r.order {
		bindings[i] = r.bindings[name]
	}
	return bindings
}

func newBinding(cfg Config) (*Binding, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: table is required", ErrConfig)
	}
	cfg.Name = cfg.routeName()

	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("%w: entity %q has an empty field schema", ErrConfig, cfg.Name)
	}
	if cfg.PrimaryKey == "" {
		return nil, fmt.Errorf("%w: entity %q has no primary key", ErrConfig, cfg.Name)
	}
	if _, ok := cfg.Fields[cfg.PrimaryKey]; !ok {
		return nil, fmt.Errorf("%w: entity %q: primary key %q is not in the field schema", ErrConfig, cfg.Name, cfg.PrimaryKey)
	}
	if cfg.PrimaryKeyAuto && cfg.PrimaryKeyGUID {
		return nil, fmt.Errorf("%w: entity %q: primaryKeyAuto and primaryKeyGuid are mutually exclusive", ErrConfig, cfg.Name)
	}

	for name, rule := range cfg.Fields {
		if !fieldTypes[rule.Type] {
			return nil, fmt.Errorf("%w: entity %q: field %q has unknown type %q", ErrConfig, cfg.Name, name, rule.Type)
		}
		if rule.Format != "" {
			if _, ok := formatTags[rule.Format]; !ok {
				return nil, fmt.Errorf("%w: entity %q: field %q has unknown format %q", ErrConfig, cfg.Name, name, rule.Format)
			}
			if rule.Type != TypeString {
				return nil, fmt.Errorf("%w: entity %q: field %q: format applies to string fields only", ErrConfig, cfg.Name, name)
			}
		}
		if len(rule.Enum) > 0 && rule.Type != TypeString {
			return nil, fmt.Errorf("%w: entity %q: field %q: enum applies to string fields only", ErrConfig, cfg.Name, name)
		}
	}

	if cfg.Upsert != nil {
		if len(cfg.Upsert.ConflictColumns) == 0 {
			return nil, fmt.Errorf("%w: entity %q: upsert needs at least one conflict column", ErrConfig, cfg.Name)
		}
		for _, col := range append(cfg.Upsert.ConflictColumns, cfg.Upsert.UpdateColumns...) {
			if _, ok := cfg.Fields[col]; !ok {
				return nil, fmt.Errorf("%w: entity %q: upsert column %q is not in the field schema", ErrConfig, cfg.Name, col)
			}
		}
	}

	if cfg.DefaultPage != nil && (cfg.DefaultPage.Page < 1 || cfg.DefaultPage.PerPage < 1) {
		return nil, fmt.Errorf("%w: entity %q: defaultPagination needs positive page and perPage", ErrConfig, cfg.Name)
	}

	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}

	b := &Binding{Config: cfg}
	for name := range cfg.Fields {
		b.fieldNames = append(b.fieldNames, name)
	}
	sort.Strings(b.fieldNames)
	return b, nil
}
