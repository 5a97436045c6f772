package odm

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Operation interfaces. Each is a small capability implemented by
// caller-supplied value types, typically structs encoding query parameters.
// The type parameter binds an operation to the document type it targets.
// Optional aspects of an operation (a transform, non-default options) are
// expressed through the companion interfaces below and discovered with type
// assertions; when absent, the document type's defaults apply.
//
// Method sets make by-reference use transparent: a *Q carries every
// value-receiver method of Q, so operation values may be passed by value or
// by pointer interchangeably.

// Count is a counting-only query. A nil filter matches every document.
type Count[T any] interface {
	Filter() bson.M
}

// Distinct is a query for the distinct values of a single field.
type Distinct[T any] interface {
	// Field is the name of the field of which the distinct values will be
	// returned.
	Field() string

	// Filter restricts which documents are taken into account. A nil filter
	// means no filtering.
	Filter() bson.M
}

// Pipeline is an aggregation pipeline.
type Pipeline[T any] interface {
	Stages() mongo.Pipeline
}

// Query is a regular FindOne/FindMany operation. A nil filter matches every
// document of the collection.
type Query[T any] interface {
	Filter() bson.M
}

// Update is an update (but not an upsert) operation. The update document
// must use operator syntax ($set, $inc, ...); it does not replace entire
// documents.
type Update[T any] interface {
	Filter() bson.M
	Update() bson.M
}

// Upsert is an update-or-insert operation. Splitting Update and Upsert into
// separate capabilities lets the façade force the upsert flag statically and
// lets callers state "this type only ever updates" as a type-level fact.
type Upsert[T any] interface {
	Filter() bson.M
	Upsert() bson.M
}

// Delete is a deletion operation.
type Delete[T any] interface {
	Filter() bson.M
}

// FindAndUpdate queries and updates the same document atomically. Unlike
// the other write kinds there is no separate upsert variant: the options
// supplied by the operation value decide whether an update or an upsert
// happens.
type FindAndUpdate[T any] interface {
	Filter() bson.M
	Update() bson.M
}

// Transformer is implemented by operations that post-process each raw
// retrieved document before it is decoded into the output type. The default
// is the identity.
type Transformer interface {
	Transform(raw Document) (any, error)
}

// ValueTransformer is the Distinct counterpart of Transformer: it
// post-processes each raw field value before decoding.
type ValueTransformer interface {
	TransformValue(raw bson.RawValue) (any, error)
}

// Per-operation options overrides. An operation value implementing one of
// these replaces the document type's default options for that kind.

type CountOptioned interface {
	CountOptions() options.Lister[options.CountOptions]
}

type DistinctOptioned interface {
	DistinctOptions() options.Lister[options.DistinctOptions]
}

type PipelineOptioned interface {
	AggregateOptions() options.Lister[options.AggregateOptions]
}

type QueryOptioned interface {
	FindOptions() options.Lister[options.FindOptions]
}

type UpdateOptioned interface {
	UpdateOptions() options.Lister[options.UpdateManyOptions]
}

type UpsertOptioned interface {
	UpsertOptions() options.Lister[options.UpdateManyOptions]
}

type DeleteOptioned interface {
	DeleteOptions() options.Lister[options.DeleteManyOptions]
}

type FindAndUpdateOptioned interface {
	FindOneAndUpdateOptions() options.Lister[options.FindOneAndUpdateOptions]
}

// Filter is a raw filter document. It implements Count, Query and Delete
// directly, for ad hoc use without a dedicated operation type:
//
//	n, err := coll.Count(ctx, odm.Filter{"age": bson.M{"$gte": 18}})
type Filter bson.M

func (f Filter) Filter() bson.M {
	return bson.M(f)
}

// filterOf normalizes an operation's filter; nil means match everything.
func filterOf(op interface{ Filter() bson.M }) bson.M {
	if f := op.Filter(); f != nil {
		return f
	}
	return bson.M{}
}

func stagesOf(op interface{ Stages() mongo.Pipeline }) mongo.Pipeline {
	if stages := op.Stages(); stages != nil {
		return stages
	}
	return mongo.Pipeline{}
}

// transformOf returns the document transform of an operation, or nil for
// the identity.
func transformOf(op any) func(Document) (any, error) {
	if t, ok := op.(Transformer); ok {
		return t.Transform
	}
	return nil
}

func transformValueOf(op any, raw bson.RawValue) (any, error) {
	if t, ok := op.(ValueTransformer); ok {
		return t.TransformValue(raw)
	}
	return raw, nil
}
