package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Filter operators. Operator names in requests are matched case-insensitively
// and stored lowercased.
const (
	OpOr    = "$or"
	OpIn    = "$in"
	OpGt    = "$gt"
	OpGte   = "$gte"
	OpLt    = "$lt"
	OpLte   = "$lte"
	OpNe    = "$ne"
	OpLike  = "$like"
	OpILike = "$ilike"
)

// ErrInvalidFilter reports a filter that could not be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is a parsed filter object. Conds are joined with AND in their
// original key order; Or holds the alternatives of a top-level $or key,
// each itself a full filter.
type Filter struct {
	Conds []Cond
	Or    []Filter
}

// Cond compares one field, or one field->>sub JSON path, against a Value.
type Cond struct {
	Field string
	Value Value
}

// ValueKind discriminates the shapes a filter value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindList
	KindOps
)

// Value is the tagged union of filter value shapes: null, a scalar, a list of
// scalars, or an operator object such as {"$gt": 5}.
type Value struct {
	Kind   ValueKind
	Scalar any
	List   []any
	Ops    []Op
}

// Op is a single operator inside an operator object. For $in the operand is a
// []any of scalars; for a field-level $or it is a []Value of alternatives.
type Op struct {
	Name  string
	Value any
}

// IsEmpty reports whether the filter constrains nothing.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Conds) == 0 && len(f.Or) == 0)
}

// SplitJSONPath splits a field->>sub reference into its column and subfield
// parts. ok is false when field carries no JSON path.
func SplitJSONPath(field string) (col, sub string, ok bool) {
	col, sub, ok = strings.Cut(field, "->>")
	if !ok {
		return field, "", false
	}
	return col, sub, true
}

// ParseFilter parses a JSON filter object. Empty input yields an empty filter.
func ParseFilter(data []byte) (*Filter, error) {
	f := &Filter{}
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}
	dec := newDecoder(data)
	if err := parseFilterObject(dec, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return f, nil
}

func parseFilterObject(dec *json.Decoder, f *Filter) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		if strings.EqualFold(key, OpOr) {
			alts, err := parseOrFilters(dec)
			if err != nil {
				return err
			}
			f.Or = append(f.Or, alts...)
			continue
		}
		if strings.HasPrefix(key, "$") {
			return fmt.Errorf("unknown operator %q", key)
		}

		value, err := parseFilterValue(dec, key)
		if err != nil {
			return err
		}
		f.Conds = append(f.Conds, Cond{Field: key, Value: value})
	}
	_, err := dec.Token() // closing }
	return err
}

// parseOrFilters parses the array of full filter objects behind a top-level $or.
func parseOrFilters(dec *json.Decoder) ([]Filter, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("$or takes an array of filter objects: %v", err)
	}
	var alts []Filter
	for dec.More() {
		var sub Filter
		if err := parseFilterObject(dec, &sub); err != nil {
			return nil, err
		}
		if sub.IsEmpty() {
			return nil, fmt.Errorf("$or contains an empty filter object")
		}
		alts = append(alts, sub)
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, err
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("$or requires at least one filter object")
	}
	return alts, nil
}

func parseFilterValue(dec *json.Decoder, field string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			list, err := parseScalarList(dec, field)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindList, List: list}, nil
		case '{':
			ops, err := parseOps(dec, field)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindOps, Ops: ops}, nil
		default:
			return Value{}, fmt.Errorf("unexpected %v for field %q", t, field)
		}
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{Kind: KindScalar, Scalar: tok}, nil
	}
}

// parseScalarList reads array elements up to the closing bracket; the opening
// bracket is already consumed. Only scalars and null are allowed.
func parseScalarList(dec *json.Decoder, field string) ([]any, error) {
	list := []any{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if _, ok := tok.(json.Delim); ok {
			return nil, fmt.Errorf("nested structures are not allowed in the array for field %q", field)
		}
		list = append(list, tok)
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, err
	}
	return list, nil
}

// parseOps reads an operator object's entries; the opening brace is already
// consumed.
func parseOps(dec *json.Decoder, field string) ([]Op, error) {
	var ops []Op
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected operator key, got %v", tok)
		}
		name := strings.ToLower(key)

		switch name {
		case OpOr:
			alts, err := parseOrValues(dec, field)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{Name: OpOr, Value: alts})
		case OpIn:
			if err := expectDelim(dec, '['); err != nil {
				return nil, fmt.Errorf("$in takes an array for field %q: %v", field, err)
			}
			list, err := parseScalarList(dec, field)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Op{Name: OpIn, Value: list})
		case OpGt, OpGte, OpLt, OpLte, OpNe, OpLike, OpILike:
			operand, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if _, ok := operand.(json.Delim); ok {
				return nil, fmt.Errorf("operator %s takes a scalar for field %q", name, field)
			}
			if name == OpLike || name == OpILike {
				if _, ok := operand.(string); !ok {
					return nil, fmt.Errorf("operator %s takes a string pattern for field %q", name, field)
				}
			}
			if operand == nil && name != OpNe {
				return nil, fmt.Errorf("operator %s does not accept null for field %q", name, field)
			}
			ops = append(ops, Op{Name: name, Value: operand})
		default:
			return nil, fmt.Errorf("unknown operator %q for field %q", key, field)
		}
	}
	if _, err := dec.Token(); err != nil { // closing }
		return nil, err
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("empty operator object for field %q", field)
	}
	return ops, nil
}

// parseOrValues parses the alternatives of a field-level $or. Each alternative
// may itself be a scalar, null, list or operator object.
func parseOrValues(dec *json.Decoder, field string) ([]Value, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("$or takes an array for field %q: %v", field, err)
	}
	var alts []Value
	for dec.More() {
		v, err := parseFilterValue(dec, field)
		if err != nil {
			return nil, err
		}
		alts = append(alts, v)
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, err
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("$or requires at least one alternative for field %q", field)
	}
	return alts, nil
}
