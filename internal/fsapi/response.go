// Package fsapi decodes file-storage service responses while keeping the key
// order of every JSON object, so records can be rendered the way the service
// sent them.
package fsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotObject reports a body that is not a single JSON object.
	ErrNotObject = errors.New("fsapi: response is not a JSON object")
	// ErrNotObjectList reports a body that is not a JSON array of objects.
	ErrNotObjectList = errors.New("fsapi: response is not a JSON array of objects")
)

// Field is one key/value pair of a decoded object. Numbers are kept as
// json.Number so identifiers round-trip without float conversion.
type Field struct {
	Key   string
	Value any
}

// DecodeObject decodes body, which must hold exactly one JSON object.
func DecodeObject(body []byte) ([]Field, error) {
	dec := newDecoder(body)
	fields, err := readObject(dec)
	if err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return fields, nil
}

// DecodeObjects decodes body, which must hold a JSON array whose elements are
// all objects. An empty array yields an empty, non-nil slice.
func DecodeObjects(body []byte) ([][]Field, error) {
	dec := newDecoder(body)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObjectList, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, ErrNotObjectList
	}

	out := make([][]Field, 0)
	for dec.More() {
		fields, err := readObject(dec)
		if err != nil {
			if errors.Is(err, ErrNotObject) {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrNotObjectList, len(out))
			}
			return nil, err
		}
		out = append(out, fields)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("fsapi: decode array end: %w", err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return out, nil
}

func newDecoder(body []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(body)))
	dec.UseNumber()
	return dec
}

func readObject(dec *json.Decoder) ([]Field, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	fields := make([]Field, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("fsapi: decode object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("fsapi: unexpected object key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("fsapi: decode value of %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("fsapi: decode object end: %w", err)
	}
	return fields, nil
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("fsapi: unexpected data after JSON value")
	}
	return nil
}
