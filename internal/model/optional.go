package model

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Optional holds a value that may be absent. Absent and zero are different
// states: a coin with no price yet is not a coin priced at zero.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr maps nil to None.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// Or returns the value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

// IsZero lets bson omitempty drop absent values.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Optional[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !o.set {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(o.value)
}

func (o *Optional[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull || t == bson.TypeUndefined {
		*o = None[T]()
		return nil
	}
	var v T
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Optional[T]) Value() (driver.Value, error) {
	return sql.Null[T]{V: o.value, Valid: o.set}.Value()
}

func (o *Optional[T]) Scan(src any) error {
	var n sql.Null[T]
	if err := n.Scan(src); err != nil {
		return err
	}
	o.value, o.set = n.V, n.Valid
	return nil
}
