package odm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionOptions tunes the behavior of a collection façade.
type CollectionOptions struct {
	// ValidateWrites runs go-playground/validator struct validation on
	// entities before they are written (InsertOne, InsertMany, ReplaceEntity,
	// UpsertEntity, FindOneAndReplace). A failure aborts the write before any
	// remote call.
	ValidateWrites bool
}

// Collection is the typed façade over a MongoDB collection holding documents
// of type T. It is cheap to copy and safe for concurrent use.
//
// Methods cover the common case where the result decodes into T itself; the
// package-level FindOneAs/FindManyAs/DistinctAs/AggregateAs and the
// FindOneAnd*As functions cover operations whose output is a different type.
type Collection[T Doc[T, I], I ID] struct {
	inner *mongo.Collection
	name  string
	opts  CollectionOptions
}

// NewCollection binds a collection façade for T to db. The collection name
// comes from T's CollectionName; if T implements WriteConcernProvider its
// write concern is applied to the underlying handle.
func NewCollection[T Doc[T, I], I ID](db *mongo.Database, opts ...CollectionOptions) *Collection[T, I] {
	var zero T
	name := zero.CollectionName()

	var collOpts []options.Lister[options.CollectionOptions]
	if provider, ok := any(zero).(WriteConcernProvider); ok {
		if wc := provider.DefaultWriteConcern(); wc != nil {
			collOpts = append(collOpts, options.Collection().SetWriteConcern(wc))
		}
	}

	c := &Collection[T, I]{
		inner: db.Collection(name, collOpts...),
		name:  name,
	}
	if len(opts) > 0 {
		c.opts = opts[0]
	}
	return c
}

// Name returns the name of the underlying collection.
func (c *Collection[T, I]) Name() string {
	return c.name
}

// Inner exposes the underlying driver collection, for operations the façade
// does not cover.
func (c *Collection[T, I]) Inner() *mongo.Collection {
	return c.inner
}

// renderOp renders an operation value for error messages. It never fails:
// values sonic cannot marshal fall back to fmt.
func renderOp(op any) string {
	if op == nil {
		return ""
	}
	if data, err := sonic.Marshal(op); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%+v", op)
}

func (c *Collection[T, I]) describe(method string, op any) string {
	return fmt.Sprintf("error in %s.%s(%s)", c.name, method, renderOp(op))
}

// uidFromRaw decodes an identifier value reported by the server into a
// typed Uid.
func uidFromRaw[T any, I ID](raw any) (Uid[T, I], error) {
	var inner I
	if err := decodeValue(raw, &inner); err != nil {
		return Uid[T, I]{}, odm_errors.DecodingError(
			fmt.Sprintf("cannot decode identifier %v as %T", raw, inner), err)
	}
	return NewUid[T](inner), nil
}

// CreateIndexes creates the indexes declared by T. It is a no-op when T
// declares none.
func (c *Collection[T, I]) CreateIndexes(ctx context.Context) error {
	var zero T
	indexed, ok := any(zero).(Indexed)
	if !ok {
		return nil
	}
	defs := indexed.Indexes()
	if len(defs) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(defs))
	for _, def := range defs {
		models = append(models, def.indexModel())
	}
	if _, err := c.inner.Indexes().CreateMany(ctx, models); err != nil {
		return odm_errors.FromDriver(c.describe("CreateIndexes", nil), err)
	}
	return nil
}

// Drop removes the underlying collection from the database.
func (c *Collection[T, I]) Drop(ctx context.Context) error {
	if err := c.inner.Drop(ctx); err != nil {
		return odm_errors.FromDriver(c.describe("Drop", nil), err)
	}
	return nil
}

// Count returns the number of documents matching the operation's filter.
func (c *Collection[T, I]) Count(ctx context.Context, op Count[T]) (uint64, error) {
	n, err := c.inner.CountDocuments(ctx, filterOf(op), listerSlice(resolveCountOptions[T, I](op))...)
	if err != nil {
		return 0, odm_errors.FromDriver(c.describe("Count", op), err)
	}
	if n < 0 {
		return 0, odm_errors.InfrastructureError(c.describe("Count", op)+": server reported a negative count", nil)
	}
	return uint64(n), nil
}

// Distinct returns the raw distinct values of the operation's field among
// the matching documents. Use DistinctAs to decode them into a typed slice.
func (c *Collection[T, I]) Distinct(ctx context.Context, op Distinct[T]) ([]bson.RawValue, error) {
	return DistinctAs[bson.RawValue](ctx, c, op)
}

// DistinctAs returns the distinct values of the operation's field decoded as
// O, after the operation's value transform if it has one.
func DistinctAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Distinct[T]) ([]O, error) {
	result := c.inner.Distinct(ctx, op.Field(), filterOf(op), listerSlice(resolveDistinctOptions[T, I](op))...)
	arr, err := result.Raw()
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("Distinct", op), err)
	}
	values, err := arr.Values()
	if err != nil {
		return nil, odm_errors.DecodingError(c.describe("Distinct", op), err)
	}

	out := make([]O, 0, len(values))
	for _, raw := range values {
		transformed, err := transformValueOf(op, raw)
		if err != nil {
			return nil, err
		}
		var item O
		if err := decodeValue(transformed, &item); err != nil {
			return nil, odm_errors.DecodingError(c.describe("Distinct", op), err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Aggregate runs the operation's pipeline and streams the results as T.
func (c *Collection[T, I]) Aggregate(ctx context.Context, op Pipeline[T]) (*Cursor[T], error) {
	return AggregateAs[T](ctx, c, op)
}

// AggregateAs runs the operation's pipeline and streams the results as O.
func AggregateAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Pipeline[T]) (*Cursor[O], error) {
	cursor, err := c.inner.Aggregate(ctx, stagesOf(op), listerSlice(resolveAggregateOptions[T, I](op))...)
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("Aggregate", op), err)
	}
	return newCursor[O](cursor, transformOf(op)), nil
}

// FindOne returns the first document matching the operation's filter, or
// (nil, nil) when nothing matches.
func (c *Collection[T, I]) FindOne(ctx context.Context, op Query[T]) (*T, error) {
	return FindOneAs[T](ctx, c, op)
}

// FindOneAs is FindOne with the result decoded as O.
func FindOneAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Query[T]) (*O, error) {
	opts, err := findOneOptions(resolveFindOptions[T, I](op))
	if err != nil {
		return nil, odm_errors.InfrastructureError(c.describe("FindOne", op), err)
	}

	raw, err := c.inner.FindOne(ctx, filterOf(op), opts...).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("FindOne", op), err)
	}
	return decodeRawResult[O](raw, transformOf(op))
}

// FindMany streams every document matching the operation's filter.
func (c *Collection[T, I]) FindMany(ctx context.Context, op Query[T]) (*Cursor[T], error) {
	return FindManyAs[T](ctx, c, op)
}

// FindManyAs is FindMany with the results decoded as O.
func FindManyAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Query[T]) (*Cursor[O], error) {
	cursor, err := c.inner.Find(ctx, filterOf(op), listerSlice(resolveFindOptions[T, I](op))...)
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("FindMany", op), err)
	}
	return newCursor[O](cursor, transformOf(op)), nil
}

// InsertOne inserts the entity and returns its identifier. When the entity
// does not carry an identifier yet, the returned one is also set on it.
func (c *Collection[T, I]) InsertOne(ctx context.Context, entity T) (Uid[T, I], error) {
	var zero Uid[T, I]

	if err := c.beforeCreate(entity); err != nil {
		return zero, err
	}

	opts, err := insertOneOptions(resolveInsertOptions[T, I]())
	if err != nil {
		return zero, odm_errors.InfrastructureError(c.describe("InsertOne", entity), err)
	}

	result, err := c.inner.InsertOne(ctx, entity, opts...)
	if err != nil {
		return zero, odm_errors.FromDriver(c.describe("InsertOne", entity), err)
	}
	if result.InsertedID == nil {
		return zero, odm_errors.MissingIDError(c.describe("InsertOne", entity) + ": server reported no inserted id")
	}

	uid, err := uidFromRaw[T, I](result.InsertedID)
	if err != nil {
		return zero, err
	}
	if _, ok := entity.DocID(); !ok {
		entity.SetDocID(uid)
	}
	return uid, nil
}

// InsertMany inserts the entities in one bulk call and returns a mapping
// from each entity's position in the argument slice to its identifier.
//
// Zero entities succeed trivially with an empty mapping and no remote call.
// On partial failure the returned error carries, as its Details, the mapping
// for the positions that were inserted before the operation stopped.
func (c *Collection[T, I]) InsertMany(ctx context.Context, entities []T) (InsertManyIDs[T, I], error) {
	if len(entities) == 0 {
		return InsertManyIDs[T, I]{}, nil
	}

	for _, entity := range entities {
		if err := c.beforeCreate(entity); err != nil {
			return nil, err
		}
	}

	docs := make([]any, len(entities))
	for i, entity := range entities {
		docs[i] = entity
	}

	result, err := c.inner.InsertMany(ctx, docs, listerSlice(resolveInsertOptions[T, I]())...)
	if err != nil {
		partial := c.partialInsertIDs(result, err, len(entities))
		return nil, odm_errors.FromDriver(c.describe("InsertMany", nil), err).WithDetails(partial)
	}
	return c.insertManyOutcome(result, len(entities))
}

func insertedIDFromRaw[T any, I ID](raw any) InsertedID[T, I] {
	if uid, err := uidFromRaw[T, I](raw); err == nil {
		return InsertedID[T, I]{Uid: uid, Decoded: true}
	}
	return InsertedID[T, I]{Raw: raw}
}

// insertManyOutcome maps the ids reported by an error-free bulk insert to
// their positions. Fewer ids than entities means some positions cannot be
// accounted for; ids that do not decode as I are retained raw. Both cases
// fail with the mapping attached as details.
func (c *Collection[T, I]) insertManyOutcome(result *mongo.InsertManyResult, total int) (InsertManyIDs[T, I], error) {
	ids := make(InsertManyIDs[T, I], len(result.InsertedIDs))
	undecodable := false
	for i, raw := range result.InsertedIDs {
		entry := insertedIDFromRaw[T, I](raw)
		ids[i] = entry
		if !entry.Decoded {
			undecodable = true
		}
	}

	if len(result.InsertedIDs) != total {
		return nil, odm_errors.MissingIDError(fmt.Sprintf(
			"%s: server reported %d inserted ids for %d entities",
			c.describe("InsertMany", nil), len(result.InsertedIDs), total,
		)).WithDetails(ids)
	}
	if undecodable {
		return nil, odm_errors.DecodingError(
			c.describe("InsertMany", nil)+": some inserted ids could not be decoded", nil,
		).WithDetails(ids)
	}
	return ids, nil
}

// partialInsertIDs builds the position-to-id mapping for the entities that
// made it in before a bulk insert failed. Failed positions come from the
// write errors. The driver generates ids client-side and reports one per
// submitted document, failed ones included, so a full-length slice is
// indexed by position; a shorter slice can only hold the surviving ids in
// submission order.
func (c *Collection[T, I]) partialInsertIDs(result *mongo.InsertManyResult, err error, total int) InsertManyIDs[T, I] {
	ids := InsertManyIDs[T, I]{}
	if result == nil || len(result.InsertedIDs) == 0 {
		return ids
	}

	failed := map[int]bool{}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		for _, we := range bulkErr.WriteErrors {
			failed[we.Index] = true
		}
	}

	if len(result.InsertedIDs) == total {
		for pos := range total {
			if failed[pos] {
				continue
			}
			ids[pos] = insertedIDFromRaw[T, I](result.InsertedIDs[pos])
		}
		return ids
	}

	next := 0
	for pos := 0; pos < total && next < len(result.InsertedIDs); pos++ {
		if failed[pos] {
			continue
		}
		ids[pos] = insertedIDFromRaw[T, I](result.InsertedIDs[next])
		next++
	}
	return ids
}

// ReplaceEntity overwrites the stored document with the entity's current
// state, matched by identifier. The entity must already carry an identifier;
// no document is inserted when none matches.
func (c *Collection[T, I]) ReplaceEntity(ctx context.Context, entity T) (UpdateOneResult, error) {
	result, err := c.replaceEntity(ctx, "ReplaceEntity", entity, false)
	if err != nil {
		return UpdateOneResult{}, err
	}
	return updateOneResultFromRaw(result), nil
}

// UpsertEntity is ReplaceEntity with insert-when-absent semantics; the
// identifier of a freshly inserted document is reported in the result.
func (c *Collection[T, I]) UpsertEntity(ctx context.Context, entity T) (UpsertOneResult[T, I], error) {
	result, err := c.replaceEntity(ctx, "UpsertEntity", entity, true)
	if err != nil {
		return UpsertOneResult[T, I]{}, err
	}
	return upsertOneResultFromRaw[T, I](result)
}

func (c *Collection[T, I]) replaceEntity(ctx context.Context, method string, entity T, upsert bool) (*mongo.UpdateResult, error) {
	if err := c.beforeUpdate(entity); err != nil {
		return nil, err
	}

	doc, err := toDocument(entity)
	if err != nil {
		return nil, odm_errors.DecodingError(c.describe(method, entity), err)
	}
	id, ok := doc["_id"]
	if !ok || id == nil {
		return nil, odm_errors.MissingIDError(c.describe(method, entity) + ": entity carries no identifier")
	}
	delete(doc, "_id")

	opts, err := replaceOptions(resolveEntityReplaceOptions[T, I](upsert), upsert)
	if err != nil {
		return nil, odm_errors.InfrastructureError(c.describe(method, entity), err)
	}

	result, err := c.inner.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts...)
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe(method, entity), err)
	}
	return result, nil
}

// UpdateOne applies the operation's update document to the first matching
// document. The upsert flag is always off for this method, whatever the
// operation's options say.
func (c *Collection[T, I]) UpdateOne(ctx context.Context, op Update[T]) (UpdateOneResult, error) {
	opts, err := updateOneOptions(resolveUpdateOptions[T, I](op), false)
	if err != nil {
		return UpdateOneResult{}, odm_errors.InfrastructureError(c.describe("UpdateOne", op), err)
	}
	result, err := c.inner.UpdateOne(ctx, filterOf(op), op.Update(), opts...)
	if err != nil {
		return UpdateOneResult{}, odm_errors.FromDriver(c.describe("UpdateOne", op), err)
	}
	return updateOneResultFromRaw(result), nil
}

// UpsertOne applies the operation's update document to the first matching
// document, inserting one when none matches. The upsert flag is always on.
func (c *Collection[T, I]) UpsertOne(ctx context.Context, op Upsert[T]) (UpsertOneResult[T, I], error) {
	opts, err := updateOneOptions(resolveUpsertOptions[T, I](op), true)
	if err != nil {
		return UpsertOneResult[T, I]{}, odm_errors.InfrastructureError(c.describe("UpsertOne", op), err)
	}
	result, err := c.inner.UpdateOne(ctx, filterOf(op), op.Upsert(), opts...)
	if err != nil {
		return UpsertOneResult[T, I]{}, odm_errors.FromDriver(c.describe("UpsertOne", op), err)
	}
	return upsertOneResultFromRaw[T, I](result)
}

// UpdateMany applies the operation's update document to every matching
// document, never upserting.
func (c *Collection[T, I]) UpdateMany(ctx context.Context, op Update[T]) (UpdateManyResult, error) {
	opts := updateManyOptions(resolveUpdateOptions[T, I](op), false)
	result, err := c.inner.UpdateMany(ctx, filterOf(op), op.Update(), opts...)
	if err != nil {
		return UpdateManyResult{}, odm_errors.FromDriver(c.describe("UpdateMany", op), err)
	}
	return updateManyResultFromRaw(result)
}

// UpsertMany applies the operation's update document to every matching
// document, inserting a single one when none matches.
func (c *Collection[T, I]) UpsertMany(ctx context.Context, op Upsert[T]) (UpsertManyResult, error) {
	opts := updateManyOptions(resolveUpsertOptions[T, I](op), true)
	result, err := c.inner.UpdateMany(ctx, filterOf(op), op.Upsert(), opts...)
	if err != nil {
		return UpsertManyResult{}, odm_errors.FromDriver(c.describe("UpsertMany", op), err)
	}
	return updateManyResultFromRaw(result)
}

// DeleteEntity deletes the stored document matching the entity's
// identifier. It reports whether a document was actually removed.
func (c *Collection[T, I]) DeleteEntity(ctx context.Context, entity T) (bool, error) {
	if err := c.beforeDelete(entity); err != nil {
		return false, err
	}

	id, ok := entity.DocID()
	if !ok {
		return false, odm_errors.MissingIDError(c.describe("DeleteEntity", entity) + ": entity carries no identifier")
	}

	opts, err := deleteOneOptions(resolveEntityDeleteOptions[T, I]())
	if err != nil {
		return false, odm_errors.InfrastructureError(c.describe("DeleteEntity", entity), err)
	}
	result, err := c.inner.DeleteOne(ctx, bson.M{"_id": id}, opts...)
	if err != nil {
		return false, odm_errors.FromDriver(c.describe("DeleteEntity", entity), err)
	}
	return result.DeletedCount > 0, nil
}

// DeleteEntities deletes the stored documents matching the identifiers of
// all given entities in one call and returns the count removed. Every
// entity must carry an identifier; otherwise the call fails before any
// remote call.
func (c *Collection[T, I]) DeleteEntities(ctx context.Context, entities []T) (uint64, error) {
	ids := make([]Uid[T, I], 0, len(entities))
	for i, entity := range entities {
		if err := c.beforeDelete(entity); err != nil {
			return 0, err
		}
		id, ok := entity.DocID()
		if !ok {
			return 0, odm_errors.MissingIDError(fmt.Sprintf(
				"error in %s.DeleteEntities: entity at position %d carries no identifier", c.name, i))
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := c.inner.DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		listerSlice(resolveEntityDeleteOptions[T, I]())...)
	if err != nil {
		return 0, odm_errors.FromDriver(c.describe("DeleteEntities", nil), err)
	}
	if result.DeletedCount < 0 {
		return 0, odm_errors.InfrastructureError(c.describe("DeleteEntities", nil)+": server reported a negative count", nil)
	}
	return uint64(result.DeletedCount), nil
}

// DeleteOne deletes the first document matching the operation's filter and
// reports whether one was removed.
func (c *Collection[T, I]) DeleteOne(ctx context.Context, op Delete[T]) (bool, error) {
	opts, err := deleteOneOptions(resolveDeleteOptions[T, I](op))
	if err != nil {
		return false, odm_errors.InfrastructureError(c.describe("DeleteOne", op), err)
	}
	result, err := c.inner.DeleteOne(ctx, filterOf(op), opts...)
	if err != nil {
		return false, odm_errors.FromDriver(c.describe("DeleteOne", op), err)
	}
	return result.DeletedCount > 0, nil
}

// DeleteMany deletes every document matching the operation's filter and
// returns the count removed.
func (c *Collection[T, I]) DeleteMany(ctx context.Context, op Delete[T]) (uint64, error) {
	result, err := c.inner.DeleteMany(ctx, filterOf(op), listerSlice(resolveDeleteOptions[T, I](op))...)
	if err != nil {
		return 0, odm_errors.FromDriver(c.describe("DeleteMany", op), err)
	}
	if result.DeletedCount < 0 {
		return 0, odm_errors.InfrastructureError(c.describe("DeleteMany", op)+": server reported a negative count", nil)
	}
	return uint64(result.DeletedCount), nil
}

// FindOneAndDelete atomically deletes the first document matching the
// operation's filter and returns it, or (nil, nil) if nothing matched. The
// operation's sort and projection apply.
func (c *Collection[T, I]) FindOneAndDelete(ctx context.Context, op Query[T]) (*T, error) {
	return FindOneAndDeleteAs[T](ctx, c, op)
}

// FindOneAndDeleteAs is FindOneAndDelete with the result decoded as O.
func FindOneAndDeleteAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Query[T]) (*O, error) {
	opts, err := findOneAndDeleteOptions(resolveFindOptions[T, I](op))
	if err != nil {
		return nil, odm_errors.InfrastructureError(c.describe("FindOneAndDelete", op), err)
	}

	raw, err := c.inner.FindOneAndDelete(ctx, filterOf(op), opts...).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("FindOneAndDelete", op), err)
	}
	return decodeRawResult[O](raw, transformOf(op))
}

// FindOneAndReplace atomically replaces the first document matching the
// operation's filter with the replacement entity and returns the
// pre-replacement document, or (nil, nil) if nothing matched. It never
// returns the post-replacement state and never upserts.
func (c *Collection[T, I]) FindOneAndReplace(ctx context.Context, op Query[T], replacement T) (*T, error) {
	return FindOneAndReplaceAs[T](ctx, c, op, replacement)
}

// FindOneAndReplaceAs is FindOneAndReplace with the pre-replacement
// document decoded as O.
func FindOneAndReplaceAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op Query[T], replacement T) (*O, error) {
	if err := c.beforeUpdate(replacement); err != nil {
		return nil, err
	}

	opts, err := findOneAndReplaceOptions(resolveFindOptions[T, I](op))
	if err != nil {
		return nil, odm_errors.InfrastructureError(c.describe("FindOneAndReplace", op), err)
	}

	raw, err := c.inner.FindOneAndReplace(ctx, filterOf(op), replacement, opts...).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("FindOneAndReplace", op), err)
	}
	return decodeRawResult[O](raw, transformOf(op))
}

// FindOneAndUpdate atomically applies the operation's update document to
// the first matching document and returns it, or (nil, nil) if nothing
// matched. Whether the pre- or post-update document is returned, and
// whether a missing match upserts, is entirely up to the operation's
// options.
func (c *Collection[T, I]) FindOneAndUpdate(ctx context.Context, op FindAndUpdate[T]) (*T, error) {
	return FindOneAndUpdateAs[T](ctx, c, op)
}

// FindOneAndUpdateAs is FindOneAndUpdate with the result decoded as O.
func FindOneAndUpdateAs[O any, T Doc[T, I], I ID](ctx context.Context, c *Collection[T, I], op FindAndUpdate[T]) (*O, error) {
	raw, err := c.inner.FindOneAndUpdate(ctx, filterOf(op), op.Update(),
		listerSlice(resolveFindAndUpdateOptions[T, I](op))...).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("FindOneAndUpdate", op), err)
	}
	return decodeRawResult[O](raw, transformOf(op))
}
