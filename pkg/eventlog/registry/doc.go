// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Registry is designed for read-heavy workloads using sync.RWMutex. It supports
// any comparable key type and any value type through Go generics.
//
// # Basic Usage
//
//	r := registry.New[string, *Schema]()
//	r.Update("earthquake", func(cur *Schema, ok bool) (*Schema, error) {
//	    if ok {
//	        return nil, ErrSchemaAlreadyExists
//	    }
//	    return newSchema("earthquake"), nil
//	})
//
//	r.View("earthquake", func(s *Schema, ok bool) {
//	    // read s under the lock
//	})
//
// # Compound Updates
//
// Update runs the callback under the write lock, so check-then-set sequences
// (refuse to overwrite, merge into the previous value) happen atomically.
// Returning an error from the callback leaves the entry untouched.
//
// # Lazy Initialization
//
// GetOrCreate is atomic: the factory function is called at most once per key,
// even under concurrent access, and the second return value reports whether
// this call created the entry.
package registry
