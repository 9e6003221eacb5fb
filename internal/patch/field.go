// Package patch provides a tri-state JSON field for partial updates.
package patch

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
)

// Field distinguishes a JSON member that is absent (Set == false), explicitly
// null (Set && Null) or carries a value.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field that clears its target.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// HasValue reports whether the field was supplied with a non-null value.
func (f Field[T]) HasValue() bool {
	return f.Set && !f.Null
}

// Ptr returns nil for an absent or null field and a copy of the value
// otherwise.
func (f Field[T]) Ptr() *T {
	if !f.HasValue() {
		return nil
	}
	v := f.Value
	return &v
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Schema describes the field as its value type with null allowed.
func (f Field[T]) Schema(r huma.Registry) *huma.Schema {
	s := r.Schema(reflect.TypeFor[T](), true, "")
	if s == nil {
		return &huma.Schema{Nullable: true}
	}
	cp := *s
	cp.Nullable = true
	return &cp
}

// Apply writes f into an optional destination: absent leaves dst untouched,
// null sets it to nil. It reports whether dst was written.
func Apply[T any](f Field[T], dst **T) bool {
	if !f.Set {
		return false
	}
	*dst = f.Ptr()
	return true
}

// ApplyValue writes a supplied value into a required destination. Absent and
// null fields leave dst untouched; callers reject null for required fields
// before applying.
func ApplyValue[T any](f Field[T], dst *T) bool {
	if !f.HasValue() {
		return false
	}
	*dst = f.Value
	return true
}
