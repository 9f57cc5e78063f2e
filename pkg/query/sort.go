package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSort reports a sort parameter that could not be parsed.
var ErrInvalidSort = errors.New("invalid sort")

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Sort is an ordered list of sort keys, preserving the JSON object's key
// order.
type Sort []SortKey

// ParseSort parses a JSON sort object such as {"created_at": -1, "name": 1}.
// A direction must be the number 1 (ascending) or -1 (descending). Empty
// input yields a nil Sort.
func ParseSort(data []byte) (Sort, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := newDecoder(data)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}

	var sort Sort
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		field, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected field name, got %v", ErrInvalidSort, tok)
		}

		dir, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		num, ok := dir.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: direction for %q must be 1 or -1", ErrInvalidSort, field)
		}
		switch num.String() {
		case "1":
			sort = append(sort, SortKey{Field: field})
		case "-1":
			sort = append(sort, SortKey{Field: field, Desc: true})
		default:
			return nil, fmt.Errorf("%w: direction for %q must be 1 or -1", ErrInvalidSort, field)
		}
	}
	if _, err := dec.Token(); err != nil { // closing }
		return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}
	return sort, nil
}
