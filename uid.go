package odm

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ID constrains the raw identifier types a document may use. Identifiers
// must be comparable so they can serve as map and set keys.
type ID interface {
	comparable
}

// Uid is the unique identifier of a document of type T, wrapping a raw
// identifier value of type I. The T parameter ties the id to its owning
// document type at compile time, so ids of unrelated document types cannot
// be mixed even when their raw types are identical.
//
// On the wire a Uid is indistinguishable from its raw value: BSON and JSON
// (de)serialization delegate to the inner identifier with no wrapper
// artifact.
type Uid[T any, I ID] struct {
	inner I
}

// NewUid wraps a raw identifier value.
func NewUid[T any, I ID](raw I) Uid[T, I] {
	return Uid[T, I]{inner: raw}
}

// NewObjectIDUid returns a fresh ObjectID-backed identifier for T.
func NewObjectIDUid[T any]() Uid[T, bson.ObjectID] {
	return NewUid[T](bson.NewObjectID())
}

// NewUUIDUid returns a fresh UUIDv4-backed string identifier for T.
func NewUUIDUid[T any]() Uid[T, string] {
	return NewUid[T](uuid.NewString())
}

// Raw returns the wrapped identifier value.
func (u Uid[T, I]) Raw() I {
	return u.inner
}

// IsZero reports whether the identifier has not been assigned. It also makes
// Uid fields honor the bson `omitempty` tag, so unassigned ids are omitted
// from serialized documents and the server generates one on insert.
func (u Uid[T, I]) IsZero() bool {
	var zero I
	return u.inner == zero
}

func (u Uid[T, I]) String() string {
	return fmt.Sprintf("%v", u.inner)
}

func (u Uid[T, I]) MarshalBSONValue() (byte, []byte, error) {
	t, data, err := bson.MarshalValue(u.inner)
	return byte(t), data, err
}

func (u *Uid[T, I]) UnmarshalBSONValue(t byte, data []byte) error {
	if err := bson.UnmarshalValue(bson.Type(t), data, &u.inner); err != nil {
		return odm_errors.DecodingError(fmt.Sprintf("cannot decode %s as %T", bson.Type(t), u.inner), err)
	}
	return nil
}

func (u Uid[T, I]) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(u.inner)
}

func (u *Uid[T, I]) UnmarshalJSON(data []byte) error {
	if err := sonic.Unmarshal(data, &u.inner); err != nil {
		return odm_errors.DecodingError(fmt.Sprintf("cannot decode JSON as %T", u.inner), err)
	}
	return nil
}
