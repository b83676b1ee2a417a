package bqtools

import (
	"golang.org/x/xerrors"
)

// FieldType is a column type of a destination table.
type FieldType string

// Supported field types.
const (
	String    FieldType = "STRING"
	Integer   FieldType = "INTEGER"
	Float     FieldType = "FLOAT"
	Boolean   FieldType = "BOOLEAN"
	Timestamp FieldType = "TIMESTAMP"
)

func (t FieldType) valid() bool {
	switch t {
	case String, Integer, Float, Boolean, Timestamp:
		return true
	}
	return false
}

// Field describes one column.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered list of columns of a destination table.
type Schema []Field

// Names returns column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Clone returns a copy which shares nothing with s.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	c := make(Schema, len(s))
	copy(c, s)
	return c
}

// Validate reports whether s can be used to create a table.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return xerrors.New("schema has no fields")
	}

	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		if f.Name == "" {
			return xerrors.Errorf("field %d has no name", i)
		}
		if _, ok := seen[f.Name]; ok {
			return xerrors.Errorf("duplicated field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if !f.Type.valid() {
			return xerrors.Errorf("field %q has unsupported type %q", f.Name, f.Type)
		}
	}

	return nil
}
