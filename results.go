package odm

import (
	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UpdateOneResult reports the outcome of a single-document update without
// upsert semantics.
type UpdateOneResult struct {
	// Matched reports whether a document matched the filter.
	Matched bool
	// Modified reports whether the matched document actually changed.
	Modified bool
}

// UpsertOneResult reports the outcome of a single-document upsert.
type UpsertOneResult[T any, I ID] struct {
	Matched  bool
	Modified bool
	// UpsertedID is the id of the newly inserted document, set only when the
	// filter matched nothing and an insert took place.
	UpsertedID *Uid[T, I]
}

// UpdateManyResult reports the outcome of a multi-document update.
type UpdateManyResult struct {
	NumMatched  uint64
	NumModified uint64
}

// UpsertManyResult reports the outcome of a multi-document upsert. At most
// one document is ever inserted, so the counts tell the whole story.
type UpsertManyResult = UpdateManyResult

// InsertedID describes where one entity of a multi-document insert ended up.
type InsertedID[T any, I ID] struct {
	// Uid is the decoded id, valid only when Decoded is true.
	Uid Uid[T, I]
	// Raw is the id as reported by the server, kept for diagnostics when it
	// could not be decoded as I.
	Raw any
	// Decoded reports whether Uid holds the decoded id.
	Decoded bool
}

// InsertManyIDs maps the positions of the inserted entities, as passed to
// InsertMany, to their ids. On partial failure it describes the entities
// that were inserted before the operation stopped.
type InsertManyIDs[T any, I ID] map[int]InsertedID[T, I]

func updateOneResultFromRaw(raw *mongo.UpdateResult) UpdateOneResult {
	return UpdateOneResult{
		Matched:  raw.MatchedCount > 0,
		Modified: raw.ModifiedCount > 0,
	}
}

func upsertOneResultFromRaw[T any, I ID](raw *mongo.UpdateResult) (UpsertOneResult[T, I], error) {
	result := UpsertOneResult[T, I]{
		Matched:  raw.MatchedCount > 0,
		Modified: raw.ModifiedCount > 0,
	}

	if raw.UpsertedID == nil {
		return result, nil
	}

	uid, err := uidFromRaw[T, I](raw.UpsertedID)
	if err != nil {
		return result, err
	}
	result.UpsertedID = &uid
	return result, nil
}

func updateManyResultFromRaw(raw *mongo.UpdateResult) (UpdateManyResult, error) {
	if raw.MatchedCount < 0 || raw.ModifiedCount < 0 {
		return UpdateManyResult{}, odm_errors.InfrastructureError("server reported negative update counts", nil)
	}
	return UpdateManyResult{
		NumMatched:  uint64(raw.MatchedCount),
		NumModified: uint64(raw.ModifiedCount),
	}, nil
}
