package model

import (
	"bytes"
	"encoding/json"
)

// Opt is a JSON field that remembers whether its key appeared in the object.
// A key present with a null value is Present but not Valid.
type Opt[T any] struct {
	Value   T
	Present bool
	Valid   bool
}

// Some returns a present, valid Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Present: true, Valid: true}
}

// Null returns an Opt whose key is present with a null value.
func Null[T any]() Opt[T] {
	return Opt[T]{Present: true}
}

// Or returns the value when valid, otherwise def.
func (o Opt[T]) Or(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero lets encoding/json omitzero drop keys that were never present.
func (o Opt[T]) IsZero() bool { return !o.Present }
