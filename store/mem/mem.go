// Package mem implements an in-memory blob store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

// Store is a memory-based implementation of a blob store.
// It is mainly useful in tests
// and for journals that need not outlive the process.
type Store struct {
	mu    sync.Mutex
	blobs map[store.Ref]store.Blob
}

// New produces a new Store.
func New() *Store {
	return &Store{
		blobs: make(map[store.Ref]store.Blob),
	}
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(_ context.Context, ref store.Ref) (store.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.blobs[ref]; ok {
		return b, nil
	}
	return nil, store.ErrNotFound
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, b store.Blob) (store.Ref, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := b.Ref()
	if _, ok := s.blobs[r]; ok {
		return r, false, nil
	}

	// Callers may reuse their buffers.
	cp := make(store.Blob, len(b))
	copy(cp, b)
	s.blobs[r] = cp

	return r, true, nil
}

// Delete removes the blob with hash `ref`.
func (s *Store) Delete(_ context.Context, ref store.Ref) error {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
	return nil
}

// Len tells how many blobs are in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	s.mu.Lock()
	refs := make([]store.Ref, 0, len(s.blobs))
	for ref := range s.blobs {
		refs = append(refs, ref)
	}
	s.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	index := sort.Search(len(refs), func(n int) bool {
		return start.Less(refs[n])
	})

	for i := index; i < len(refs); i++ {
		err := f(refs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (store.Store, error) {
		return New(), nil
	})
}
