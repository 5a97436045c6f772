package odm

import (
	"context"
	"log"
	"sync"

	"github.com/go-errors/errors"
)

type registryEntry struct {
	collection any
	ensure     func(ctx context.Context) error
	compare    func(ctx context.Context) ([]IndexWarning, error)
}

// Registry is a process-wide binding of document types to their live
// collection façades on one connector. It is safe for concurrent use.
type Registry struct {
	connector *Connector

	mu      sync.RWMutex
	entries map[string]registryEntry
}

func NewRegistry(connector *Connector) *Registry {
	return &Registry{
		connector: connector,
		entries:   make(map[string]registryEntry),
	}
}

// Register binds T's collection on the registry's connector and returns the
// façade. Registering the same collection name twice is an error.
func Register[T Doc[T, I], I ID](r *Registry, opts ...CollectionOptions) (*Collection[T, I], error) {
	if r == nil {
		return nil, errors.New("registry is nil")
	}

	coll := NewCollection[T, I](r.connector.Database(), opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[coll.Name()]; exists {
		return nil, errors.Errorf("the collection %s is already registered", coll.Name())
	}
	r.entries[coll.Name()] = registryEntry{
		collection: coll,
		ensure:     coll.CreateIndexes,
		compare:    coll.CompareIndexes,
	}
	return coll, nil
}

// Lookup returns the registered façade for T.
func Lookup[T Doc[T, I], I ID](r *Registry) (*Collection[T, I], error) {
	if r == nil {
		return nil, errors.New("registry is nil")
	}
	var zero T
	name := zero.CollectionName()

	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("the collection %s is not registered", name)
	}

	coll, ok := entry.collection.(*Collection[T, I])
	if !ok {
		return nil, errors.Errorf("the collection %s is registered for a different document type", name)
	}
	return coll, nil
}

// CollectionNames returns the names of every registered collection.
func (r *Registry) CollectionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// EnsureIndexes sweeps every registered collection: drift between declared
// and existing indexes is logged as warnings, then the declared indexes are
// created.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	r.mu.RLock()
	entries := make(map[string]registryEntry, len(r.entries))
	for name, entry := range r.entries {
		entries[name] = entry
	}
	r.mu.RUnlock()

	for name, entry := range entries {
		warnings, err := entry.compare(ctx)
		if err != nil {
			log.Printf("Warning: could not compare indexes for %s: %v", name, err)
		} else if len(warnings) > 0 {
			log.Printf("Index warnings for %s:", name)
			for _, warning := range warnings {
				log.Printf("  [%s] %s", warning.Type, warning.Message)
			}
		}

		if err := entry.ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close disconnects the registry's connector.
func (r *Registry) Close(ctx context.Context) error {
	return r.connector.Disconnect(ctx)
}
