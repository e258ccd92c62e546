// Package gc removes unneeded blobs from a journal store.
//
// Journals accumulate:
// every sync run with a journal adds a manifest and the blocks it displaced.
// To prune, protect the manifests worth keeping (and the blobs they refer to) in a Keep,
// then Run deletes everything else.
package gc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/blocksync/store"
)

// Store is a blob store that can delete blobs.
type Store interface {
	store.Getter
	store.Deleter
}

// Run runs a garbage collection on s,
// with k the set of refs to keep.
// It returns the number of blobs deleted.
func Run(ctx context.Context, s Store, k Keep) (int, error) {
	// Refs are collected before any deletion,
	// since not every store can delete while listing.
	var doomed []store.Ref
	err := s.ListRefs(ctx, store.Zero, func(ref store.Ref) error {
		found, err := k.Contains(ctx, ref)
		if err != nil {
			return err
		}
		if !found {
			doomed = append(doomed, ref)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "listing refs")
	}

	for i, ref := range doomed {
		err = s.Delete(ctx, ref)
		if err != nil {
			return i, errors.Wrapf(err, "deleting %s", ref)
		}
	}
	return len(doomed), nil
}
