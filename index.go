package odm

import (
	"context"
	"fmt"
	"time"

	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IndexType marks special index kinds. The zero value means a regular
// ordered key.
type IndexType string

const (
	IndexTypeText     IndexType = "text"
	IndexType2D       IndexType = "2d"
	IndexType2DSphere IndexType = "2dsphere"
	IndexTypeHashed   IndexType = "hashed"
)

// IndexField is one key of an index. Order is 1 for ascending and -1 for
// descending; it is ignored when Type is set.
type IndexField struct {
	Name  string
	Order int
	Type  IndexType
}

// IndexDefinition describes one index of a collection, as declared by a
// document type through the Indexed interface.
type IndexDefinition struct {
	Name   string
	Fields []IndexField

	Unique             bool
	Sparse             bool
	Hidden             bool
	ExpireAfterSeconds *int32
	PartialFilter      map[string]any
	Collation          *options.Collation
	Weights            map[string]int32
	DefaultLanguage    string
	LanguageOverride   string
	TextVersion        *int32
	SphereVersion      *int32
	Bits               *int32
	Max                *float64
	Min                *float64
	StorageEngine      map[string]any
	WildcardProjection map[string]any
}

// NewSimpleIndex creates an ascending index on a single field.
func NewSimpleIndex(fieldName string, unique bool) IndexDefinition {
	return IndexDefinition{
		Name:   fieldName + "_1",
		Fields: []IndexField{{Name: fieldName, Order: 1}},
		Unique: unique,
	}
}

// NewCompoundIndex creates an index on multiple fields.
func NewCompoundIndex(name string, fields []IndexField, unique bool) IndexDefinition {
	return IndexDefinition{
		Name:   name,
		Fields: fields,
		Unique: unique,
	}
}

// NewTextIndex creates a full-text search index over the given fields.
func NewTextIndex(name string, fields []string) IndexDefinition {
	indexFields := make([]IndexField, len(fields))
	for i, field := range fields {
		indexFields[i] = IndexField{Name: field, Type: IndexTypeText}
	}
	return IndexDefinition{
		Name:   name,
		Fields: indexFields,
	}
}

// NewTTLIndex creates a TTL index on a single date field.
func NewTTLIndex(fieldName string, expireAfter time.Duration) IndexDefinition {
	seconds := int32(expireAfter.Seconds())
	return IndexDefinition{
		Name:               fieldName + "_ttl",
		Fields:             []IndexField{{Name: fieldName, Order: 1}},
		ExpireAfterSeconds: &seconds,
	}
}

// New2DSphereIndex creates a 2dsphere geospatial index.
func New2DSphereIndex(fieldName string) IndexDefinition {
	return IndexDefinition{
		Name:   fieldName + "_2dsphere",
		Fields: []IndexField{{Name: fieldName, Type: IndexType2DSphere}},
	}
}

// NewHashedIndex creates a hashed index.
func NewHashedIndex(fieldName string) IndexDefinition {
	return IndexDefinition{
		Name:   fieldName + "_hashed",
		Fields: []IndexField{{Name: fieldName, Type: IndexTypeHashed}},
	}
}

func (idx IndexDefinition) WithSparse(sparse bool) IndexDefinition {
	idx.Sparse = sparse
	return idx
}

func (idx IndexDefinition) WithHidden(hidden bool) IndexDefinition {
	idx.Hidden = hidden
	return idx
}

func (idx IndexDefinition) WithPartialFilter(filter map[string]any) IndexDefinition {
	idx.PartialFilter = filter
	return idx
}

// WithTTL makes the index a TTL index. It must include a date field.
func (idx IndexDefinition) WithTTL(expireAfter time.Duration) IndexDefinition {
	seconds := int32(expireAfter.Seconds())
	idx.ExpireAfterSeconds = &seconds
	return idx
}

func (idx IndexDefinition) WithCollation(collation *options.Collation) IndexDefinition {
	idx.Collation = collation
	return idx
}

func (idx IndexDefinition) WithWeights(weights map[string]int32) IndexDefinition {
	idx.Weights = weights
	return idx
}

func (idx IndexDefinition) WithDefaultLanguage(language string) IndexDefinition {
	idx.DefaultLanguage = language
	return idx
}

func (idx IndexDefinition) WithStorageEngine(engine map[string]any) IndexDefinition {
	idx.StorageEngine = engine
	return idx
}

func (idx IndexDefinition) WithWildcardProjection(projection map[string]any) IndexDefinition {
	idx.WildcardProjection = projection
	return idx
}

// indexModel converts the definition to the driver's representation.
func (idx IndexDefinition) indexModel() mongo.IndexModel {
	keys := bson.D{}
	for _, field := range idx.Fields {
		if field.Type != "" {
			keys = append(keys, bson.E{Key: field.Name, Value: string(field.Type)})
		} else {
			keys = append(keys, bson.E{Key: field.Name, Value: field.Order})
		}
	}

	opts := options.Index()
	if idx.Name != "" {
		opts.SetName(idx.Name)
	}
	if idx.Unique {
		opts.SetUnique(true)
	}
	if idx.Sparse {
		opts.SetSparse(true)
	}
	if idx.Hidden {
		opts.SetHidden(true)
	}
	if idx.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*idx.ExpireAfterSeconds)
	}
	if idx.PartialFilter != nil {
		opts.SetPartialFilterExpression(idx.PartialFilter)
	}
	if idx.Collation != nil {
		opts.SetCollation(idx.Collation)
	}
	if idx.Weights != nil {
		opts.SetWeights(idx.Weights)
	}
	if idx.DefaultLanguage != "" {
		opts.SetDefaultLanguage(idx.DefaultLanguage)
	}
	if idx.LanguageOverride != "" {
		opts.SetLanguageOverride(idx.LanguageOverride)
	}
	if idx.TextVersion != nil {
		opts.SetTextVersion(*idx.TextVersion)
	}
	if idx.SphereVersion != nil {
		opts.SetSphereVersion(*idx.SphereVersion)
	}
	if idx.Bits != nil {
		opts.SetBits(*idx.Bits)
	}
	if idx.Max != nil {
		opts.SetMax(*idx.Max)
	}
	if idx.Min != nil {
		opts.SetMin(*idx.Min)
	}
	if idx.StorageEngine != nil {
		opts.SetStorageEngine(idx.StorageEngine)
	}
	if idx.WildcardProjection != nil {
		opts.SetWildcardProjection(idx.WildcardProjection)
	}

	return mongo.IndexModel{Keys: keys, Options: opts}
}

// IndexWarning reports a discrepancy between the indexes a document type
// declares and the indexes that actually exist in the database.
type IndexWarning struct {
	Type    IndexWarningType
	Message string
	Details map[string]any
}

type IndexWarningType string

const (
	// IndexWarningMissingInCode: the index exists in the database but the
	// document type does not declare it.
	IndexWarningMissingInCode IndexWarningType = "missing_in_code"
	// IndexWarningMissingInDB: the document type declares the index but it
	// does not exist in the database.
	IndexWarningMissingInDB IndexWarningType = "missing_in_db"
	// IndexWarningDifferent: the index exists on both sides with different
	// keys or options.
	IndexWarningDifferent IndexWarningType = "different"
)

// ListIndexes returns the names of the indexes that exist on the underlying
// collection.
func (c *Collection[T, I]) ListIndexes(ctx context.Context) ([]string, error) {
	existing, err := c.existingIndexes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(existing))
	for name := range existing {
		names = append(names, name)
	}
	return names, nil
}

// CompareIndexes compares the indexes T declares against the ones that
// exist on the underlying collection and returns the discrepancies.
func (c *Collection[T, I]) CompareIndexes(ctx context.Context) ([]IndexWarning, error) {
	var zero T
	indexed, ok := any(zero).(Indexed)
	if !ok {
		return nil, nil
	}
	declared := indexed.Indexes()

	existing, err := c.existingIndexes(ctx)
	if err != nil {
		return nil, err
	}

	declaredByName := make(map[string]IndexDefinition, len(declared))
	for _, idx := range declared {
		declaredByName[idx.Name] = idx
	}

	var warnings []IndexWarning
	for name, dbIndex := range existing {
		if name == "_id_" {
			continue
		}
		if _, ok := declaredByName[name]; !ok {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningMissingInCode,
				Message: fmt.Sprintf("index '%s' exists in database but is not declared", name),
				Details: map[string]any{"indexName": name, "dbIndex": dbIndex},
			})
		}
	}

	for _, idx := range declared {
		dbIndex, ok := existing[idx.Name]
		if !ok {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningMissingInDB,
				Message: fmt.Sprintf("index '%s' is declared but does not exist in database", idx.Name),
				Details: map[string]any{"indexName": idx.Name, "definition": idx},
			})
			continue
		}
		if diff := compareIndexDetails(idx, dbIndex); diff != "" {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningDifferent,
				Message: fmt.Sprintf("index '%s' differs: %s", idx.Name, diff),
				Details: map[string]any{"indexName": idx.Name, "difference": diff, "declared": idx, "existing": dbIndex},
			})
		}
	}
	return warnings, nil
}

func (c *Collection[T, I]) existingIndexes(ctx context.Context) (map[string]bson.M, error) {
	cursor, err := c.inner.Indexes().List(ctx)
	if err != nil {
		return nil, odm_errors.FromDriver(c.describe("ListIndexes", nil), err)
	}
	defer cursor.Close(ctx)

	existing := make(map[string]bson.M)
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			return nil, odm_errors.DecodingError(c.describe("ListIndexes", nil), err)
		}
		if name, ok := index["name"].(string); ok {
			existing[name] = index
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, odm_errors.FromDriver(c.describe("ListIndexes", nil), err)
	}
	return existing, nil
}

func compareIndexDetails(declared IndexDefinition, existing bson.M) string {
	if keys, ok := existing["key"].(bson.M); ok {
		if len(keys) != len(declared.Fields) {
			return "different number of fields"
		}
		for _, field := range declared.Fields {
			value, ok := keys[field.Name]
			if !ok {
				return fmt.Sprintf("field '%s' missing in database index", field.Name)
			}
			if field.Type != "" {
				if s, ok := value.(string); !ok || s != string(field.Type) {
					return fmt.Sprintf("field '%s' has a different kind", field.Name)
				}
				continue
			}
			if indexKeyOrder(value) != field.Order {
				return fmt.Sprintf("field '%s' has a different order", field.Name)
			}
		}
	}

	dbUnique := false
	if u, ok := existing["unique"].(bool); ok {
		dbUnique = u
	}
	if dbUnique != declared.Unique {
		return "unique flag differs"
	}

	dbSparse := false
	if s, ok := existing["sparse"].(bool); ok {
		dbSparse = s
	}
	if dbSparse != declared.Sparse {
		return "sparse flag differs"
	}

	dbTTL, hasDBTTL := indexKeyInt32(existing["expireAfterSeconds"])
	if declared.ExpireAfterSeconds != nil {
		if !hasDBTTL || dbTTL != *declared.ExpireAfterSeconds {
			return "TTL differs"
		}
	} else if hasDBTTL {
		return "TTL differs"
	}

	return ""
}

// Index listings decode numbers as int32, int64 or float64 depending on the
// server version.

func indexKeyOrder(value any) int {
	switch v := value.(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func indexKeyInt32(value any) (int32, bool) {
	switch v := value.(type) {
	case int32:
		return v, true
	case int64:
		return int32(v), true
	case float64:
		return int32(v), true
	}
	return 0, false
}
