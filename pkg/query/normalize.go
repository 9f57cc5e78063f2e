package query

// Leaf is one comparison value bound to a field somewhere in a filter,
// flattened out of whatever operator structure it was nested in. Op is the
// operator the value belongs to, or "" for a plain equality/IN-list value.
type Leaf struct {
	Field string
	Op    string
	Value any
}

// NormalizeFunc rewrites a single filter leaf. It is called for every
// comparison value except $like/$ilike patterns, whose partial strings are
// not of the field's declared type.
type NormalizeFunc func(field, op string, value any) (any, error)

// Leaves flattens the filter into its comparison values in traversal order.
// Null comparisons appear with a nil Value; $like/$ilike patterns are
// excluded. A filter containing only scalar, null and array values round
// trips: its leaves are exactly its values, unchanged.
func (f *Filter) Leaves() []Leaf {
	var leaves []Leaf
	_ = f.walk(func(field, op string, value *any) error {
		leaves = append(leaves, Leaf{Field: field, Op: op, Value: *value})
		return nil
	}, true)
	return leaves
}

// Normalize rewrites every comparison value in place via fn. Null leaves are
// skipped along with $like/$ilike patterns.
func (f *Filter) Normalize(fn NormalizeFunc) error {
	return f.walk(func(field, op string, value *any) error {
		rewritten, err := fn(field, op, *value)
		if err != nil {
			return err
		}
		*value = rewritten
		return nil
	}, false)
}

func (f *Filter) walk(fn func(field, op string, value *any) error, includeNulls bool) error {
	if f == nil {
		return nil
	}
	for i := range f.Conds {
		c := &f.Conds[i]
		if err := walkValue(c.Field, "", &c.Value, fn, includeNulls); err != nil {
			return err
		}
	}
	for i := range f.Or {
		if err := f.Or[i].walk(fn, includeNulls); err != nil {
			return err
		}
	}
	return nil
}

func walkValue(field, op string, v *Value, fn func(field, op string, value *any) error, includeNulls bool) error {
	switch v.Kind {
	case KindNull:
		if !includeNulls {
			return nil
		}
		var null any
		return fn(field, op, &null)
	case KindScalar:
		return fn(field, op, &v.Scalar)
	case KindList:
		for i := range v.List {
			if err := fn(field, op, &v.List[i]); err != nil {
				return err
			}
		}
		return nil
	case KindOps:
		for i := range v.Ops {
			if err := walkOp(field, &v.Ops[i], fn, includeNulls); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkOp(field string, o *Op, fn func(field, op string, value *any) error, includeNulls bool) error {
	switch o.Name {
	case OpLike, OpILike:
		// partial-match patterns are never type checked or rewritten
		return nil
	case OpOr:
		alts := o.Value.([]Value)
		for i := range alts {
			if err := walkValue(field, "", &alts[i], fn, includeNulls); err != nil {
				return err
			}
		}
		return nil
	case OpIn:
		list := o.Value.([]any)
		for i := range list {
			if err := fn(field, o.Name, &list[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		if o.Value == nil && !includeNulls {
			return nil
		}
		return fn(field, o.Name, &o.Value)
	}
}
