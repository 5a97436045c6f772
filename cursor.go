package odm

import (
	"context"

	"github.com/xompass/vsaas-odm/odm_errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Cursor is a typed stream of query results. When the originating operation
// provides a Transform, each raw document passes through it before being
// decoded into O.
type Cursor[O any] struct {
	inner     *mongo.Cursor
	transform func(Document) (any, error)
}

func newCursor[O any](inner *mongo.Cursor, transform func(Document) (any, error)) *Cursor[O] {
	return &Cursor[O]{inner: inner, transform: transform}
}

// Next advances the cursor. It returns false when the cursor is exhausted or
// an error occurred; check Err after the loop.
func (c *Cursor[O]) Next(ctx context.Context) bool {
	return c.inner.Next(ctx)
}

// Decode decodes the current document into out, applying the transform
// first when one is set.
func (c *Cursor[O]) Decode(out *O) error {
	if c.transform == nil {
		if err := c.inner.Decode(out); err != nil {
			return odm_errors.DecodingError("decoding query result failed", err)
		}
		return nil
	}

	var raw Document
	if err := c.inner.Decode(&raw); err != nil {
		return odm_errors.DecodingError("decoding query result failed", err)
	}

	transformed, err := c.transform(raw)
	if err != nil {
		return err
	}

	if err := decodeValue(transformed, out); err != nil {
		return odm_errors.DecodingError("decoding transformed query result failed", err)
	}
	return nil
}

// Err returns the error, if any, that the cursor encountered while iterating.
func (c *Cursor[O]) Err() error {
	if err := c.inner.Err(); err != nil {
		return odm_errors.FromDriver("cursor iteration failed", err)
	}
	return nil
}

// Close releases the server-side resources associated with the cursor.
func (c *Cursor[O]) Close(ctx context.Context) error {
	if err := c.inner.Close(ctx); err != nil {
		return odm_errors.FromDriver("closing cursor failed", err)
	}
	return nil
}

// All drains the cursor into a slice and closes it.
func (c *Cursor[O]) All(ctx context.Context) ([]O, error) {
	defer c.inner.Close(ctx)

	if c.transform == nil {
		var results []O
		if err := c.inner.All(ctx, &results); err != nil {
			return nil, odm_errors.DecodingError("decoding query results failed", err)
		}
		return results, nil
	}

	var results []O
	for c.inner.Next(ctx) {
		var item O
		if err := c.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := c.inner.Err(); err != nil {
		return nil, odm_errors.FromDriver("cursor iteration failed", err)
	}
	return results, nil
}

// decodeRawResult decodes a single raw result (from findAndModify style
// operations), applying the given transform when set.
func decodeRawResult[O any](raw bson.Raw, transform func(Document) (any, error)) (*O, error) {
	out := new(O)

	if transform == nil {
		if err := bson.Unmarshal(raw, out); err != nil {
			return nil, odm_errors.DecodingError("decoding query result failed", err)
		}
		return out, nil
	}

	var doc Document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, odm_errors.DecodingError("decoding query result failed", err)
	}

	transformed, err := transform(doc)
	if err != nil {
		return nil, err
	}

	if err := decodeValue(transformed, out); err != nil {
		return nil, odm_errors.DecodingError("decoding transformed query result failed", err)
	}
	return out, nil
}
