package odm

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type uidDoc struct{}

func TestUidBSONTransparency(t *testing.T) {
	oid := bson.NewObjectID()

	wrapped, err := bson.Marshal(bson.M{"_id": NewUid[uidDoc](oid)})
	require.NoError(t, err)

	raw, err := bson.Marshal(bson.M{"_id": oid})
	require.NoError(t, err)

	assert.Equal(t, raw, wrapped, "wrapped id should serialize exactly like the raw value")
}

func TestUidBSONRoundTrip(t *testing.T) {
	type entity struct {
		ID   Uid[uidDoc, bson.ObjectID] `bson:"_id"`
		Name string                     `bson:"name"`
	}

	original := entity{ID: NewObjectIDUid[uidDoc](), Name: "carol"}

	data, err := bson.Marshal(original)
	require.NoError(t, err)

	var decoded entity
	require.NoError(t, bson.Unmarshal(data, &decoded))
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Name, decoded.Name)
}

func TestUidOmitEmpty(t *testing.T) {
	type entity struct {
		ID   Uid[uidDoc, bson.ObjectID] `bson:"_id,omitempty"`
		Name string                     `bson:"name"`
	}

	data, err := bson.Marshal(entity{Name: "dave"})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "_id", "unassigned id should be omitted")

	data, err = bson.Marshal(entity{ID: NewObjectIDUid[uidDoc](), Name: "dave"})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(data, &doc))
	assert.Contains(t, doc, "_id")
}

func TestUidJSONTransparency(t *testing.T) {
	oid := bson.NewObjectID()
	id := NewUid[uidDoc](oid)

	wrapped, err := sonic.Marshal(id)
	require.NoError(t, err)

	raw, err := sonic.Marshal(oid)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(wrapped))

	var decoded Uid[uidDoc, bson.ObjectID]
	require.NoError(t, sonic.Unmarshal(wrapped, &decoded))
	assert.Equal(t, id, decoded)
}

func TestUidEquality(t *testing.T) {
	oid := bson.NewObjectID()
	a := NewUid[uidDoc](oid)
	b := NewUid[uidDoc](oid)

	assert.Equal(t, a, b)

	seen := map[Uid[uidDoc, bson.ObjectID]]int{a: 1}
	assert.Equal(t, 1, seen[b], "equal ids should collide as map keys")
}

func TestUidIsZero(t *testing.T) {
	var id Uid[uidDoc, bson.ObjectID]
	assert.True(t, id.IsZero())
	assert.False(t, NewObjectIDUid[uidDoc]().IsZero())

	var strID Uid[uidDoc, string]
	assert.True(t, strID.IsZero())
	assert.False(t, NewUid[uidDoc]("u-1").IsZero())
}

func TestNewUUIDUid(t *testing.T) {
	a := NewUUIDUid[uidDoc]()
	b := NewUUIDUid[uidDoc]()

	_, err := uuid.Parse(a.Raw())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
