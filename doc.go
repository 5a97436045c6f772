package odm

import (
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// Doc is implemented by top-level (direct collection member) document types.
// T is the implementing type itself (typically a pointer type, e.g. *User)
// and I is the raw identifier type.
type Doc[T any, I ID] interface {
	// CollectionName returns the name of the collection within the database.
	// It must be non-empty and stable, and must not depend on instance state:
	// the façade calls it on a zero value of T.
	CollectionName() string

	// DocID returns the identifier of this document, and whether one has
	// been assigned yet.
	DocID() (Uid[T, I], bool)

	// SetDocID assigns an identifier to this document. The façade calls it
	// after a successful insert.
	SetDocID(id Uid[T, I])
}

// Indexed is implemented by document types that declare indexes on their
// collection. Types that do not implement it get no user-defined indexes
// (the _id index still exists, as defined by MongoDB).
type Indexed interface {
	Indexes() []IndexDefinition
}

// Per-operation-kind default options. Each is optional: a document type that
// does not implement a provider gets the driver defaults for that kind.
// There are no default interface methods in Go, so defaults are discovered
// at runtime the same way the index and hook capabilities are.

type CountOptionsProvider interface {
	DefaultCountOptions() options.Lister[options.CountOptions]
}

type DistinctOptionsProvider interface {
	DefaultDistinctOptions() options.Lister[options.DistinctOptions]
}

type AggregateOptionsProvider interface {
	DefaultAggregateOptions() options.Lister[options.AggregateOptions]
}

type QueryOptionsProvider interface {
	DefaultFindOptions() options.Lister[options.FindOptions]
}

type InsertOptionsProvider interface {
	DefaultInsertOptions() options.Lister[options.InsertManyOptions]
}

type DeleteOptionsProvider interface {
	DefaultDeleteOptions() options.Lister[options.DeleteManyOptions]
}

type UpdateOptionsProvider interface {
	DefaultUpdateOptions() options.Lister[options.UpdateManyOptions]
}

type UpsertOptionsProvider interface {
	DefaultUpsertOptions() options.Lister[options.UpdateManyOptions]
}

type FindAndUpdateOptionsProvider interface {
	DefaultFindOneAndUpdateOptions() options.Lister[options.FindOneAndUpdateOptions]
}

// WriteConcernProvider lets a document type pick the durability level of its
// collection handle. The driver scopes write concerns to the collection, so
// this is consulted once, when the façade is constructed.
type WriteConcernProvider interface {
	DefaultWriteConcern() *writeconcern.WriteConcern
}

// Write hooks, honored by the entity-level façade methods.

type BeforeCreateHook interface {
	BeforeCreate() error
}

type BeforeUpdateHook interface {
	BeforeUpdate() error
}

type BeforeDeleteHook interface {
	BeforeDelete() error
}
