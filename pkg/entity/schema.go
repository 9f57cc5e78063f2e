package entity

// Schema is the JSON-Schema-like document served for an entity. Property
// names mirror JSON Schema so generic tooling can read it; the primaryKey
// fields are additions describing the key policy.
type Schema struct {
	Type           string              `json:"type"`
	Properties     map[string]Property `json:"properties"`
	Required       []string            `json:"required,omitempty"`
	PrimaryKey     string              `json:"primaryKey"`
	PrimaryKeyAuto bool                `json:"primaryKeyAuto"`
	PrimaryKeyGUID bool                `json:"primaryKeyGuid"`
}

// Property describes one field's declared type and constraints.
type Property struct {
	Type      string   `json:"type"`
	Format    string   `json:"format,omitempty"`
	Enum      []string `json:"enum,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
}

// Schema renders the binding's field rules as an introspection document.
func (b *Binding) Schema() Schema {
	props := make(map[string]Property, len(b.Fields))
	var required []string
	for _, name := range b.fieldNames {
		rule := b.Fields[name]
		props[name] = Property{
			Type:      rule.Type,
			Format:    rule.Format,
			Enum:      rule.Enum,
			MinLength: rule.MinLen,
			MaxLength: rule.MaxLen,
			Minimum:   rule.Min,
			Maximum:   rule.Max,
		}
		if rule.Required {
			required = append(required, name)
		}
	}
	return Schema{
		Type:           "object",
		Properties:     props,
		Required:       required,
		PrimaryKey:     b.PrimaryKey,
		PrimaryKeyAuto: b.PrimaryKeyAuto,
		PrimaryKeyGUID: b.PrimaryKeyGUID,
	}
}
