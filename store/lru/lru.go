// Package lru implements a blob store that acts as a least-recently-used cache for a nested blob store.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

// Store implements a memory-based least-recently-used cache for a blob store.
// Writes pass through to the underlying blob store.
// Restoring a journal fetches each displaced block once,
// but a journal whose blocks repeat (e.g. many zero blocks) is served mostly from the cache.
type Store struct {
	c *lru.Cache // Ref->Blob
	s store.Store
}

// New produces a new Store backed by `s` and caching up to `size` blobs.
func New(s store.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, errors.Wrap(err, "creating cache")
}

// Get gets the blob with hash `ref`.
// The caller owns the result and may modify it without affecting the cache.
func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Blob, error) {
	if got, ok := s.c.Get(ref); ok {
		return clone(got.(store.Blob)), nil
	}
	blob, err := s.s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.c.Add(ref, clone(blob))
	return blob, nil
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b store.Blob) (store.Ref, bool, error) {
	ref, added, err := s.s.Put(ctx, b)
	if err != nil {
		return ref, added, err
	}
	s.c.Add(ref, clone(b))
	return ref, added, nil
}

func clone(b store.Blob) store.Blob {
	cp := make(store.Blob, len(b))
	copy(cp, b)
	return cp
}

// Delete evicts the blob with hash `ref` from the cache
// and removes it from the underlying store,
// which must implement store.Deleter.
func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	s.c.Remove(ref)
	return store.Delete(ctx, s.s, ref)
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	return s.s.ListRefs(ctx, start, f)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		size, ok, err := store.IntParam(conf, "size")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nestedStore, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nestedStore, size)
	})
}
