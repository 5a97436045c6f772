package odm

import (
	"fmt"

	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is the loosely-typed wire representation of a stored document.
// Its removal helpers are meant for implementing Transform methods: they
// extract a value and delete its key, failing with MISSING_DOCUMENT_FIELD
// when the key is absent and ILL_TYPED_DOCUMENT_FIELD when the key holds a
// value of the wrong kind. The two conditions are deliberately distinct so
// transforms can tell "optional field not set" from "document is corrupt".
type Document bson.M

func missingFieldError(key string, kind string) error {
	return odm_errors.MissingFieldError(fmt.Sprintf("missing %s value for key `%s`", kind, key))
}

func illTypedFieldError(key string, kind string, value any) error {
	return odm_errors.IllTypedFieldError(fmt.Sprintf("value for key `%s` is not %s but %T", key, kind, value))
}

func removeTyped[V any](d Document, key string, kind string) (V, error) {
	var zero V
	value, ok := d[key]
	if !ok {
		return zero, missingFieldError(key, kind)
	}
	typed, ok := value.(V)
	if !ok {
		return zero, illTypedFieldError(key, kind, value)
	}
	delete(d, key)
	return typed, nil
}

// TryRemove removes and returns the value for key, of whatever kind,
// including an explicit null.
func (d Document) TryRemove(key string) (any, error) {
	value, ok := d[key]
	if !ok {
		return nil, odm_errors.MissingFieldError(fmt.Sprintf("key `%s` was not found in the document", key))
	}
	delete(d, key)
	return value, nil
}

func (d Document) RemoveBool(key string) (bool, error) {
	return removeTyped[bool](d, key, "bool")
}

func (d Document) RemoveI32(key string) (int32, error) {
	return removeTyped[int32](d, key, "i32")
}

func (d Document) RemoveI64(key string) (int64, error) {
	return removeTyped[int64](d, key, "i64")
}

func (d Document) RemoveF64(key string) (float64, error) {
	return removeTyped[float64](d, key, "f64")
}

// RemoveNumber removes the value for key if it is any numeric wire kind
// (i32, i64 or f64), preserving its original type.
func (d Document) RemoveNumber(key string) (any, error) {
	value, ok := d[key]
	if !ok {
		return nil, missingFieldError(key, "numeric")
	}
	switch value.(type) {
	case int32, int64, float64:
		delete(d, key)
		return value, nil
	}
	return nil, illTypedFieldError(key, "numeric", value)
}

func (d Document) RemoveString(key string) (string, error) {
	return removeTyped[string](d, key, "string")
}

func (d Document) RemoveArray(key string) (bson.A, error) {
	value, ok := d[key]
	if !ok {
		return nil, missingFieldError(key, "array")
	}
	switch arr := value.(type) {
	case bson.A:
		delete(d, key)
		return arr, nil
	case []any:
		delete(d, key)
		return bson.A(arr), nil
	}
	return nil, illTypedFieldError(key, "array", value)
}

// RemoveDocument removes the value for key if it is an embedded document,
// returning it as the raw value. Use RemoveInnerDoc to get the Document
// form directly.
func (d Document) RemoveDocument(key string) (any, error) {
	value, ok := d[key]
	if !ok {
		return nil, missingFieldError(key, "document")
	}
	switch value.(type) {
	case Document, bson.M, bson.D:
		delete(d, key)
		return value, nil
	}
	return nil, illTypedFieldError(key, "document", value)
}

func (d Document) RemoveObjectID(key string) (bson.ObjectID, error) {
	return removeTyped[bson.ObjectID](d, key, "ObjectID")
}

func (d Document) RemoveDateTime(key string) (bson.DateTime, error) {
	return removeTyped[bson.DateTime](d, key, "DateTime")
}

func (d Document) RemoveTimestamp(key string) (bson.Timestamp, error) {
	return removeTyped[bson.Timestamp](d, key, "timestamp")
}

// RemoveBinary removes the value for key if it is a Binary of the generic
// subtype.
func (d Document) RemoveBinary(key string) (bson.Binary, error) {
	value, ok := d[key]
	if !ok {
		return bson.Binary{}, missingFieldError(key, "generic binary")
	}
	binary, ok := value.(bson.Binary)
	if !ok || binary.Subtype != bson.TypeBinaryGeneric {
		return bson.Binary{}, illTypedFieldError(key, "generic binary", value)
	}
	delete(d, key)
	return binary, nil
}

// RemoveInnerDoc removes the value for key if it is an embedded document
// and returns it as a Document, for chained extraction.
func (d Document) RemoveInnerDoc(key string) (Document, error) {
	value, ok := d[key]
	if !ok {
		return nil, missingFieldError(key, "document")
	}
	switch doc := value.(type) {
	case Document:
		delete(d, key)
		return doc, nil
	case bson.M:
		delete(d, key)
		return Document(doc), nil
	case bson.D:
		delete(d, key)
		inner := make(Document, len(doc))
		for _, elem := range doc {
			inner[elem.Key] = elem.Value
		}
		return inner, nil
	}
	return nil, illTypedFieldError(key, "document", value)
}

// toDocument converts any serializable value to the Document form through a
// BSON round trip.
func toDocument(v any) (Document, error) {
	if v == nil {
		return Document{}, nil
	}

	switch doc := v.(type) {
	case Document:
		return doc, nil
	case bson.M:
		return Document(doc), nil
	}

	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeValue decodes a loosely-typed value (a raw BSON value, a Document,
// or any marshalable Go value) into the statically expected type.
func decodeValue(value any, out any) error {
	if raw, ok := value.(bson.RawValue); ok {
		if dst, ok := out.(*bson.RawValue); ok {
			*dst = raw
			return nil
		}
		return raw.Unmarshal(out)
	}

	t, data, err := bson.MarshalValue(value)
	if err != nil {
		return err
	}
	return bson.UnmarshalValue(t, data, out)
}
