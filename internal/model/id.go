package model

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is a 24 character hex object id. It is stored as a native ObjectID in
// mongo and as char(24) in sql.
type ID string

func NewID() ID {
	return ID(primitive.NewObjectID().Hex())
}

func ParseID(s string) (ID, error) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(oid.Hex()), nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return 0, nil, fmt.Errorf("marshal id %q: %w", string(id), err)
	}
	return bson.MarshalValue(oid)
}

func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeObjectID:
		*id = ID(rv.ObjectID().Hex())
	case bson.TypeString:
		*id = ID(rv.StringValue())
	case bson.TypeNull:
		*id = ""
	default:
		return fmt.Errorf("cannot decode %s into ID", t)
	}
	return nil
}
