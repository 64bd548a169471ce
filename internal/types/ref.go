package types

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ref is a document reference that may have been populated by a $lookup.
// It is stored as the referenced ObjectID and decodes either form.
type Ref[T any] struct {
	ID  primitive.ObjectID
	Doc *T
}

func RefTo[T any](id primitive.ObjectID) Ref[T] {
	return Ref[T]{ID: id}
}

func (r Ref[T]) Populated() bool {
	return r.Doc != nil
}

// PublicValue is the wire form: the populated document, or the id as hex.
func (r Ref[T]) PublicValue() any {
	if r.Doc != nil {
		return r.Doc
	}
	if r.ID.IsZero() {
		return nil
	}
	return r.ID.Hex()
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.PublicValue())
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return fmt.Errorf("reference must be an id string: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return err
	}
	*r = Ref[T]{ID: id}
	return nil
}

func (r Ref[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.ID.IsZero() {
		return bson.MarshalValue(nil)
	}
	return bson.MarshalValue(r.ID)
}

func (r *Ref[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*r = Ref[T]{}
	case bson.TypeObjectID:
		var id primitive.ObjectID
		if err := bson.UnmarshalValue(t, data, &id); err != nil {
			return err
		}
		*r = Ref[T]{ID: id}
	case bson.TypeString:
		var hex string
		if err := bson.UnmarshalValue(t, data, &hex); err != nil {
			return err
		}
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return err
		}
		*r = Ref[T]{ID: id}
	case bson.TypeEmbeddedDocument:
		doc := new(T)
		if err := bson.Unmarshal(data, doc); err != nil {
			return err
		}
		id, _ := bson.Raw(data).Lookup("_id").ObjectIDOK()
		*r = Ref[T]{ID: id, Doc: doc}
	default:
		return fmt.Errorf("cannot decode %s into a reference", t)
	}
	return nil
}
