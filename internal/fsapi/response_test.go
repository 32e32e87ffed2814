package fsapi

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeObjectKeepsKeyOrder(t *testing.T) {
	fields, err := DecodeObject([]byte(`{"name":"a.txt","id":42,"created_at":"2020-01-01T10:00:00","meta":{"k":"v"},"gone":null}`))
	if err != nil {
		t.Fatalf("DecodeObject returned error: %v", err)
	}

	var keys []string
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	expected := []string{"name", "id", "created_at", "meta", "gone"}
	if !reflect.DeepEqual(keys, expected) {
		t.Fatalf("key order mismatch: expected %v, got %v", expected, keys)
	}
	if n, ok := fields[1].Value.(json.Number); !ok || n.String() != "42" {
		t.Fatalf("expected json.Number 42, got %#v", fields[1].Value)
	}
	if fields[4].Value != nil {
		t.Fatalf("expected nil value, got %#v", fields[4].Value)
	}
}

func TestDecodeObjectRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array", body: `[{"id":1}]`},
		{name: "string", body: `"hello"`},
		{name: "null", body: `null`},
		{name: "empty body", body: ``},
		{name: "truncated", body: `{"id":1`},
		{name: "trailing data", body: `{"id":1} {"id":2}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeObject([]byte(tc.body)); err == nil {
				t.Fatalf("DecodeObject(%q) expected error", tc.body)
			}
		})
	}
}

func TestDecodeObjects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "two records", body: `[{"id":"1"},{"id":"2"}]`, expected: 2},
		{name: "empty array", body: `[]`, expected: 0},
		{name: "surrounding whitespace", body: "\n [ {\"id\":1} ] \n", expected: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeObjects([]byte(tc.body))
			if err != nil {
				t.Fatalf("DecodeObjects returned error: %v", err)
			}
			if got == nil {
				t.Fatalf("DecodeObjects returned nil slice")
			}
			if len(got) != tc.expected {
				t.Fatalf("expected %d records, got %d", tc.expected, len(got))
			}
		})
	}
}

func TestDecodeObjectsRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`{"id":1}`, `[1,2]`, `[{"id":1},"x"]`, `null`} {
		_, err := DecodeObjects([]byte(body))
		if !errors.Is(err, ErrNotObjectList) {
			t.Fatalf("DecodeObjects(%q) expected ErrNotObjectList, got %v", body, err)
		}
	}
}
