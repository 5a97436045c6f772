package odm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestApplyLister(t *testing.T) {
	args, err := applyLister(options.Find().SetSkip(5).SetLimit(10))
	require.NoError(t, err)
	require.NotNil(t, args.Skip)
	assert.Equal(t, int64(5), *args.Skip)
	require.NotNil(t, args.Limit)
	assert.Equal(t, int64(10), *args.Limit)

	empty, err := applyLister[options.FindOptions](nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Skip)
}

func TestFindOneOptionsConversion(t *testing.T) {
	find := options.Find().
		SetSkip(3).
		SetSort(bson.D{{Key: "age", Value: -1}}).
		SetProjection(bson.M{"name": 1}).
		SetLimit(100) // find-one has no limit; it must be dropped

	listers, err := findOneOptions(find)
	require.NoError(t, err)
	require.Len(t, listers, 1)

	args, err := applyLister(listers[0])
	require.NoError(t, err)
	require.NotNil(t, args.Skip)
	assert.Equal(t, int64(3), *args.Skip)
	assert.NotNil(t, args.Sort)
	assert.NotNil(t, args.Projection)

	none, err := findOneOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateOneOptionsForcesUpsert(t *testing.T) {
	// The operation's own upsert preference is ignored either way.
	lister := options.UpdateMany().SetUpsert(true).SetComment("note")

	listers, err := updateOneOptions(lister, false)
	require.NoError(t, err)
	require.Len(t, listers, 1)

	args, err := applyLister(listers[0])
	require.NoError(t, err)
	require.NotNil(t, args.Upsert)
	assert.False(t, *args.Upsert)
	assert.NotNil(t, args.Comment)

	listers, err = updateOneOptions(options.UpdateMany().SetUpsert(false), true)
	require.NoError(t, err)
	args, err = applyLister(listers[0])
	require.NoError(t, err)
	require.NotNil(t, args.Upsert)
	assert.True(t, *args.Upsert)
}

func TestUpdateManyOptionsForcesUpsert(t *testing.T) {
	listers := updateManyOptions(options.UpdateMany().SetUpsert(true), false)
	require.Len(t, listers, 2)

	// Apply in order, as the driver does: the forced flag wins.
	args := new(options.UpdateManyOptions)
	for _, lister := range listers {
		for _, fn := range lister.List() {
			require.NoError(t, fn(args))
		}
	}
	require.NotNil(t, args.Upsert)
	assert.False(t, *args.Upsert)

	listers = updateManyOptions(nil, true)
	require.Len(t, listers, 1)
	args, err := applyLister(listers[0])
	require.NoError(t, err)
	require.NotNil(t, args.Upsert)
	assert.True(t, *args.Upsert)
}

func TestFindOneAndReplaceOptionsPinned(t *testing.T) {
	listers, err := findOneAndReplaceOptions(options.Find().SetSort(bson.D{{Key: "age", Value: 1}}))
	require.NoError(t, err)
	require.Len(t, listers, 1)

	args, err := applyLister(listers[0])
	require.NoError(t, err)
	require.NotNil(t, args.ReturnDocument)
	assert.Equal(t, options.Before, *args.ReturnDocument)
	require.NotNil(t, args.Upsert)
	assert.False(t, *args.Upsert)
	assert.NotNil(t, args.Sort)
}

func TestDeleteOneOptionsConversion(t *testing.T) {
	listers, err := deleteOneOptions(options.DeleteMany().SetComment("cleanup"))
	require.NoError(t, err)
	require.Len(t, listers, 1)

	args, err := applyLister(listers[0])
	require.NoError(t, err)
	assert.NotNil(t, args.Comment)

	none, err := deleteOneOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListerSlice(t *testing.T) {
	assert.Nil(t, listerSlice[options.FindOptions](nil))
	assert.Len(t, listerSlice(options.Find().SetSkip(1)), 1)
}
