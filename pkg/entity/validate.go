package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/restq/restq/pkg/query"
)

// formats checks well-known string formats so no format logic is hand rolled
// here. Var is safe for concurrent use.
var formats = validator.New()

// ValidateCreate checks a create payload against the field schema. Values are
// coerced to their native Go types and string transforms are applied in
// place, so the validated rows are what gets persisted.
func (b *Binding) ValidateCreate(rows []query.Row) error {
	if len(rows) == 0 {
		return Errors{{Code: CodeShape, Message: "payload must contain at least one row"}}
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].SameKeys(rows[0]) {
			return Errors{{
				Code:    CodeShape,
				Message: fmt.Sprintf("row %d does not share the field set of row 0", i),
			}}
		}
	}

	for i := range rows {
		if errs := b.checkRow(&rows[i], true); len(errs) > 0 {
			return errs
		}
	}
	return nil
}

// ValidateUpdate checks an update payload. Absent fields are fine (PATCH is
// partial); the primary key is never updatable.
func (b *Binding) ValidateUpdate(row *query.Row) error {
	if row.Len() == 0 {
		return Errors{{Code: CodeShape, Message: "payload must contain at least one field"}}
	}
	if errs := b.checkRow(row, false); len(errs) > 0 {
		return errs
	}
	return nil
}

func (b *Binding) checkRow(row *query.Row, create bool) Errors {
	var errs Errors

	for _, field := range row.Keys() {
		value, _ := row.Get(field)

		if field == b.PrimaryKey {
			if !create {
				errs = append(errs, FieldError{
					Field:   field,
					Code:    CodeForbidden,
					Message: fmt.Sprintf("primary key %q cannot be updated", field),
				})
				continue
			}
			if b.PrimaryKeyAuto || b.PrimaryKeyGUID {
				errs = append(errs, FieldError{
					Field:   field,
					Code:    CodeForbidden,
					Message: fmt.Sprintf("primary key %q is server generated", field),
				})
				continue
			}
		}

		rule, ok := b.Fields[field]
		if !ok {
			errs = append(errs, FieldError{
				Field:   field,
				Code:    CodeUnknownField,
				Message: fmt.Sprintf("unknown field %q", field),
			})
			continue
		}

		coerced, fe := coerceValue(field, rule, value, false)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		coerced = applyTransforms(rule, coerced)
		if fe := checkConstraints(field, rule, coerced); fe != nil {
			errs = append(errs, *fe)
			continue
		}
		row.Set(field, coerced)
	}

	if create {
		errs = append(errs, b.checkRequired(*row)...)
	}
	return errs
}

func (b *Binding) checkRequired(row query.Row) Errors {
	var errs Errors
	for _, field := range b.fieldNames {
		rule := b.Fields[field]
		required := rule.Required
		if field == b.PrimaryKey {
			// caller-supplied keys are implicitly required; generated
			// ones are forbidden above
			required = !b.PrimaryKeyAuto && !b.PrimaryKeyGUID
		}
		if required && !row.Has(field) {
			errs = append(errs, FieldError{
				Field:   field,
				Code:    CodeRequired,
				Message: fmt.Sprintf("field %q is required", field),
			})
		}
	}
	return errs
}

// ValidateFilter type checks and coerces the filter's comparison values.
// Each field's rule is widened to also accept arrays of the declared type,
// and string forms of numbers and booleans are accepted since path and
// query-string values arrive as text. Fields outside the schema pass through
// so operator keys and database-side columns stay usable; JSON-path fields
// skip type checks because the extracted value's type is not statically
// known.
func (b *Binding) ValidateFilter(f *query.Filter) error {
	return f.Normalize(func(field, op string, value any) (any, error) {
		if _, _, isPath := query.SplitJSONPath(field); isPath {
			return stringifyPathValue(value), nil
		}
		rule, ok := b.Fields[field]
		if !ok {
			if n, isNum := value.(json.Number); isNum {
				return normalizeNumber(n), nil
			}
			return value, nil
		}
		coerced, fe := coerceValue(field, rule, value, true)
		if fe != nil {
			return nil, Errors{*fe}
		}
		return applyTransforms(rule, coerced), nil
	})
}

// ValidateSort requires every sort key to be a schema field.
func (b *Binding) ValidateSort(sort query.Sort) error {
	for _, key := range sort {
		if _, ok := b.Fields[key.Field]; !ok {
			return Errors{{
				Field:   key.Field,
				Code:    CodeUnknownField,
				Message: fmt.Sprintf("unknown sort field %q", key.Field),
			}}
		}
	}
	return nil
}

// ValidateColumns requires every projected column to be a schema field.
func (b *Binding) ValidateColumns(columns []string) error {
	for _, col := range columns {
		if _, ok := b.Fields[col]; !ok {
			return Errors{{
				Field:   col,
				Code:    CodeUnknownField,
				Message: fmt.Sprintf("unknown column %q", col),
			}}
		}
	}
	return nil
}

// coerceValue checks value against the rule's type and converts it to the
// native Go type bound into SQL parameters. Filters are lenient about string
// forms; payloads are not.
func coerceValue(field string, rule FieldRule, value any, filter bool) (any, *FieldError) {
	mismatch := func() (any, *FieldError) {
		return nil, &FieldError{
			Field:   field,
			Code:    CodeTypeMismatch,
			Message: fmt.Sprintf("field %q expects a %s", field, rule.Type),
		}
	}

	switch rule.Type {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return mismatch()

	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if filter {
				if parsed, err := strconv.ParseBool(v); err == nil {
					return parsed, nil
				}
			}
		}
		return mismatch()

	case TypeInteger:
		switch v := value.(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		case string:
			if filter {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					return n, nil
				}
			}
		}
		return mismatch()

	case TypeNumber:
		switch v := value.(type) {
		case json.Number:
			return normalizeNumber(v), nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			return v, nil
		case string:
			if filter {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					return f, nil
				}
			}
		}
		return mismatch()
	}
	return mismatch()
}

func applyTransforms(rule FieldRule, value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if rule.Trim {
		s = strings.TrimSpace(s)
	}
	if rule.Lowercase {
		s = strings.ToLower(s)
	}
	return s
}

func checkConstraints(field string, rule FieldRule, value any) *FieldError {
	if s, ok := value.(string); ok {
		if rule.MinLen != nil && len(s) < *rule.MinLen {
			return &FieldError{Field: field, Code: CodeLength,
				Message: fmt.Sprintf("field %q must be at least %d characters", field, *rule.MinLen)}
		}
		if rule.MaxLen != nil && len(s) > *rule.MaxLen {
			return &FieldError{Field: field, Code: CodeLength,
				Message: fmt.Sprintf("field %q must be at most %d characters", field, *rule.MaxLen)}
		}
		if len(rule.Enum) > 0 && !contains(rule.Enum, s) {
			return &FieldError{Field: field, Code: CodeEnumInvalid,
				Message: fmt.Sprintf("field %q must be one of %s", field, strings.Join(rule.Enum, ", "))}
		}
		if rule.Format != "" {
			if err := formats.Var(s, formatTags[rule.Format]); err != nil {
				return &FieldError{Field: field, Code: CodeFormat,
					Message: fmt.Sprintf("field %q is not a valid %s", field, rule.Format)}
			}
		}
	}

	if rule.Min != nil || rule.Max != nil {
		if n, ok := asFloat(value); ok {
			if rule.Min != nil && n < *rule.Min {
				return &FieldError{Field: field, Code: CodeRange,
					Message: fmt.Sprintf("field %q must be >= %v", field, *rule.Min)}
			}
			if rule.Max != nil && n > *rule.Max {
				return &FieldError{Field: field, Code: CodeRange,
					Message: fmt.Sprintf("field %q must be <= %v", field, *rule.Max)}
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// normalizeNumber keeps integers integral and falls back to float64.
func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// stringifyPathValue renders a JSON-path comparison value as text, matching
// the text the ->> operator extracts.
func stringifyPathValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return value
	}
}
