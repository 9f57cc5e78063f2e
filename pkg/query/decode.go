package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidBody reports a request body that is not the expected JSON shape.
var ErrInvalidBody = errors.New("invalid request body")

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

// DecodeRow decodes a single JSON object into an ordered Row.
func DecodeRow(data []byte) (Row, error) {
	dec := newDecoder(data)
	row, err := decodeRow(dec)
	if err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := expectEOF(dec); err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return row, nil
}

// DecodeRows decodes either a single JSON object or an array of JSON objects
// into ordered Rows.
func DecodeRows(data []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidBody)
	}
	if trimmed[0] != '[' {
		row, err := DecodeRow(data)
		if err != nil {
			return nil, err
		}
		return []Row{row}, nil
	}

	dec := newDecoder(data)
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	var rows []Row
	for dec.More() {
		row, err := decodeRow(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return rows, nil
}

// decodeRow consumes one JSON object from dec, keeping key order. Nested
// values are decoded as ordinary Go values; only top-level order matters
// for SQL generation.
func decodeRow(dec *json.Decoder) (Row, error) {
	row := NewRow()
	if err := expectDelim(dec, '{'); err != nil {
		return row, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return row, err
		}
		key, ok := tok.(string)
		if !ok {
			return row, fmt.Errorf("expected object key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return row, err
		}
		row.Set(key, value)
	}
	if _, err := dec.Token(); err != nil { // closing }
		return row, err
	}
	return row, nil
}

func expectDelim(dec *json.Decoder, d rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != json.Delim(d) {
		return fmt.Errorf("expected %q, got %v", string(d), tok)
	}
	return nil
}

func expectEOF(dec *json.Decoder) error {
	if tok, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing content %v", tok)
	}
	return nil
}
