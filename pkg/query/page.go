package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultPerPage applies when pagination is requested without a perPage.
const DefaultPerPage = 100

// ErrInvalidPage reports a pagination parameter that could not be parsed.
var ErrInvalidPage = errors.New("invalid pagination")

// Page bounds a result set. Absent pagination means unbounded.
type Page struct {
	Page    int `json:"page" mapstructure:"page"`
	PerPage int `json:"perPage" mapstructure:"perPage"`
}

// Offset returns the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageCount returns the number of pages needed for totalRows rows.
func (p Page) PageCount(totalRows int64) int64 {
	per := int64(p.PerPage)
	return (totalRows + per - 1) / per
}

// ParsePage parses a JSON pagination object such as {"page": 2, "perPage":
// 50}. page must be a positive integer; perPage defaults to DefaultPerPage
// when omitted. Empty input yields nil, meaning unbounded.
func ParsePage(data []byte) (*Page, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw struct {
		Page    json.Number `json:"page"`
		PerPage json.Number `json:"perPage"`
	}
	dec := newDecoder(data)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}

	p := &Page{PerPage: DefaultPerPage}
	var err error
	if p.Page, err = positiveInt(raw.Page, "page"); err != nil {
		return nil, err
	}
	if raw.PerPage != "" {
		if p.PerPage, err = positiveInt(raw.PerPage, "perPage"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func positiveInt(num json.Number, name string) (int, error) {
	if num == "" {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidPage, name)
	}
	n, err := num.Int64()
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidPage, name)
	}
	return int(n), nil
}
