package gc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/blocksync/store"
)

// Keep is a set of refs to protect from garbage collection.
type Keep interface {
	// Add adds a single ref to the Keep.
	// It returns true if it was newly added and false if it was already present.
	Add(context.Context, store.Ref) (bool, error)

	// Contains tells whether a ref is in the Keep.
	Contains(context.Context, store.Ref) (bool, error)
}

// MemKeep is an in-memory Keep.
type MemKeep struct {
	mu sync.Mutex
	m  map[store.Ref]struct{}
}

var _ Keep = &MemKeep{}

// NewMemKeep produces an empty MemKeep.
func NewMemKeep() *MemKeep {
	return &MemKeep{m: make(map[store.Ref]struct{})}
}

func (k *MemKeep) Add(_ context.Context, ref store.Ref) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.m[ref]; ok {
		return false, nil
	}
	k.m[ref] = struct{}{}
	return true, nil
}

func (k *MemKeep) Contains(_ context.Context, ref store.Ref) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	_, ok := k.m[ref]
	return ok, nil
}

// ProtectFunc tells which other blobs the blob at ref refers to.
type ProtectFunc func(ctx context.Context, g store.Getter, ref store.Ref) ([]store.Ref, error)

// Protect adds ref to k,
// plus the refs that f finds in its blob.
// A nil f protects ref alone.
func Protect(ctx context.Context, g store.Getter, k Keep, ref store.Ref, f ProtectFunc) error {
	added, err := k.Add(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "adding %s", ref)
	}
	if !added || f == nil {
		return nil
	}

	refs, err := f(ctx, g, ref)
	if err != nil {
		return errors.Wrapf(err, "finding refs in %s", ref)
	}
	for _, r := range refs {
		if _, err = k.Add(ctx, r); err != nil {
			return errors.Wrapf(err, "adding %s", r)
		}
	}
	return nil
}
