package odm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Filter works for every filter-only operation kind.
var (
	_ Count[*User]  = Filter{}
	_ Query[*User]  = Filter{}
	_ Delete[*User] = Filter{}
)

type adultsByName struct {
	MinAge int32 `json:"minAge"`
}

func (q adultsByName) Filter() bson.M {
	return bson.M{"age": bson.M{"$gte": q.MinAge}}
}

func (q adultsByName) Transform(raw Document) (any, error) {
	name, err := raw.RemoveString("name")
	if err != nil {
		return nil, err
	}
	raw["name"] = "adult:" + name
	return raw, nil
}

func TestFilterOf(t *testing.T) {
	assert.Equal(t, bson.M{}, filterOf(Filter(nil)), "nil filter matches everything")
	assert.Equal(t, bson.M{"age": int32(3)}, filterOf(Filter{"age": int32(3)}))

	q := adultsByName{MinAge: 18}
	assert.Equal(t, bson.M{"age": bson.M{"$gte": int32(18)}}, filterOf(q))
}

type ageBuckets struct{}

func (ageBuckets) Stages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$age", "n": bson.M{"$sum": 1}}}},
	}
}

type emptyPipeline struct{}

func (emptyPipeline) Stages() mongo.Pipeline { return nil }

var _ Pipeline[*User] = ageBuckets{}

func TestStagesOf(t *testing.T) {
	stages := stagesOf(ageBuckets{})
	require.Len(t, stages, 1)
	assert.Equal(t, "$group", stages[0][0].Key)

	assert.Equal(t, mongo.Pipeline{}, stagesOf(emptyPipeline{}), "nil stages normalize to an empty pipeline")
}

func TestTransformOf(t *testing.T) {
	assert.Nil(t, transformOf(Filter{}), "plain filters carry no transform")

	transform := transformOf(adultsByName{})
	require.NotNil(t, transform)

	out, err := transform(Document{"name": "alice"})
	require.NoError(t, err)
	doc, ok := out.(Document)
	require.True(t, ok)
	assert.Equal(t, "adult:alice", doc["name"])

	// Pointer values carry the value-receiver methods too.
	assert.NotNil(t, transformOf(&adultsByName{}))
}

func TestTransformValueOf(t *testing.T) {
	raw := bson.RawValue{Type: bson.TypeInt32, Value: []byte{42, 0, 0, 0}}

	// Without a value transform, the raw value passes through.
	out, err := transformValueOf(Filter{}, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
