package odm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func sampleDocument() Document {
	return Document{
		"flag":     true,
		"count":    int32(42),
		"total":    int64(1000),
		"ratio":    0.5,
		"name":     "alice",
		"tags":     bson.A{"a", "b"},
		"oid":      bson.NewObjectID(),
		"when":     bson.DateTime(1700000000000),
		"ts":       bson.Timestamp{T: 1, I: 2},
		"blob":     bson.Binary{Subtype: bson.TypeBinaryGeneric, Data: []byte{1, 2, 3}},
		"uuid":     bson.Binary{Subtype: bson.TypeBinaryUUID, Data: make([]byte, 16)},
		"inner":    bson.M{"x": int32(1)},
		"settings": bson.D{{Key: "y", Value: int32(2)}},
		"null":     nil,
	}
}

func TestDocumentRemoveTyped(t *testing.T) {
	doc := sampleDocument()

	flag, err := doc.RemoveBool("flag")
	require.NoError(t, err)
	assert.True(t, flag)
	assert.NotContains(t, doc, "flag", "successful removal should delete the key")

	count, err := doc.RemoveI32("count")
	require.NoError(t, err)
	assert.Equal(t, int32(42), count)

	total, err := doc.RemoveI64("total")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)

	ratio, err := doc.RemoveF64("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio)

	name, err := doc.RemoveString("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	tags, err := doc.RemoveArray("tags")
	require.NoError(t, err)
	assert.Equal(t, bson.A{"a", "b"}, tags)

	_, err = doc.RemoveObjectID("oid")
	require.NoError(t, err)

	when, err := doc.RemoveDateTime("when")
	require.NoError(t, err)
	assert.Equal(t, bson.DateTime(1700000000000), when)

	ts, err := doc.RemoveTimestamp("ts")
	require.NoError(t, err)
	assert.Equal(t, bson.Timestamp{T: 1, I: 2}, ts)

	blob, err := doc.RemoveBinary("blob")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
}

func TestDocumentRemoveMissingKey(t *testing.T) {
	doc := Document{"name": "alice"}

	tests := []struct {
		name string
		call func() error
	}{
		{"TryRemove", func() error { _, err := doc.TryRemove("absent"); return err }},
		{"RemoveBool", func() error { _, err := doc.RemoveBool("absent"); return err }},
		{"RemoveI32", func() error { _, err := doc.RemoveI32("absent"); return err }},
		{"RemoveNumber", func() error { _, err := doc.RemoveNumber("absent"); return err }},
		{"RemoveString", func() error { _, err := doc.RemoveString("absent"); return err }},
		{"RemoveArray", func() error { _, err := doc.RemoveArray("absent"); return err }},
		{"RemoveDocument", func() error { _, err := doc.RemoveDocument("absent"); return err }},
		{"RemoveObjectID", func() error { _, err := doc.RemoveObjectID("absent"); return err }},
		{"RemoveBinary", func() error { _, err := doc.RemoveBinary("absent"); return err }},
		{"RemoveInnerDoc", func() error { _, err := doc.RemoveInnerDoc("absent"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, odm_errors.IsKind(err, odm_errors.MISSING_DOCUMENT_FIELD))
		})
	}
}

func TestDocumentRemoveIllTyped(t *testing.T) {
	doc := sampleDocument()

	tests := []struct {
		name string
		call func() error
	}{
		{"RemoveBool", func() error { _, err := doc.RemoveBool("name"); return err }},
		{"RemoveI32", func() error { _, err := doc.RemoveI32("name"); return err }},
		{"RemoveI64", func() error { _, err := doc.RemoveI64("ratio"); return err }},
		{"RemoveF64", func() error { _, err := doc.RemoveF64("count"); return err }},
		{"RemoveNumber", func() error { _, err := doc.RemoveNumber("name"); return err }},
		{"RemoveString", func() error { _, err := doc.RemoveString("count"); return err }},
		{"RemoveArray", func() error { _, err := doc.RemoveArray("inner"); return err }},
		{"RemoveDocument", func() error { _, err := doc.RemoveDocument("tags"); return err }},
		{"RemoveObjectID", func() error { _, err := doc.RemoveObjectID("name"); return err }},
		{"RemoveDateTime", func() error { _, err := doc.RemoveDateTime("ts"); return err }},
		{"RemoveInnerDoc", func() error { _, err := doc.RemoveInnerDoc("tags"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, odm_errors.IsKind(err, odm_errors.ILL_TYPED_DOCUMENT_FIELD))
		})
	}

	// A failed removal must leave the document untouched.
	assert.Contains(t, doc, "name")
	assert.Contains(t, doc, "count")
	assert.Contains(t, doc, "tags")
}

func TestDocumentTryRemoveNull(t *testing.T) {
	doc := sampleDocument()

	value, err := doc.TryRemove("null")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.NotContains(t, doc, "null")
}

func TestDocumentRemoveNumberKinds(t *testing.T) {
	doc := Document{"a": int32(1), "b": int64(2), "c": 3.5}

	a, err := doc.RemoveNumber("a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), a)

	b, err := doc.RemoveNumber("b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b)

	c, err := doc.RemoveNumber("c")
	require.NoError(t, err)
	assert.Equal(t, 3.5, c)
}

func TestDocumentRemoveBinarySubtype(t *testing.T) {
	doc := sampleDocument()

	_, err := doc.RemoveBinary("uuid")
	require.Error(t, err)
	assert.True(t, odm_errors.IsKind(err, odm_errors.ILL_TYPED_DOCUMENT_FIELD),
		"non-generic binary subtypes should not pass as generic")
	assert.Contains(t, doc, "uuid")
}

func TestDocumentRemoveInnerDoc(t *testing.T) {
	doc := sampleDocument()

	inner, err := doc.RemoveInnerDoc("inner")
	require.NoError(t, err)
	x, err := inner.RemoveI32("x")
	require.NoError(t, err)
	assert.Equal(t, int32(1), x)

	settings, err := doc.RemoveInnerDoc("settings")
	require.NoError(t, err)
	y, err := settings.RemoveI32("y")
	require.NoError(t, err)
	assert.Equal(t, int32(2), y)
}

func TestToDocument(t *testing.T) {
	type entity struct {
		ID   bson.ObjectID `bson:"_id"`
		Name string        `bson:"name"`
	}

	oid := bson.NewObjectID()
	doc, err := toDocument(entity{ID: oid, Name: "erin"})
	require.NoError(t, err)
	assert.Equal(t, oid, doc["_id"])
	assert.Equal(t, "erin", doc["name"])

	// Already-document values pass through without a round trip.
	same, err := toDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, same)

	empty, err := toDocument(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
