// Package store describes the content-addressable blob stores
// that hold undo journals.
//
// A blob is stored under its ref,
// the sha256 hash of its content.
// Concrete stores live in subpackages and register themselves by name,
// so that a store can be constructed from a JSON config map with Create.
package store

import (
	"context"

	"github.com/pkg/errors"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets a blob by its ref.
	Get(context.Context, Ref) (Blob, error)

	// ListRefs calls a function for each blob ref in the store in lexicographic order,
	// beginning with the first ref _after_ the specified one.
	//
	// The calls reflect at least the set of refs
	// known at the moment ListRefs was called.
	// It is unspecified whether later changes,
	// that happen concurrently with ListRefs,
	// are reflected.
	//
	// If the callback function returns an error,
	// ListRefs exits with that error.
	ListRefs(context.Context, Ref, func(r Ref) error) error
}

// Store is a blob store.
// It stores byte sequences - "blobs" - of arbitrary length.
// Each blob can be retrieved using its "ref" as a lookup key.
type Store interface {
	Getter

	// Put adds b to the store if it was not already present.
	// It returns b's ref and a boolean that is true iff the blob had to be added.
	Put(ctx context.Context, b Blob) (ref Ref, added bool, err error)
}

// Deleter is a Store that can remove blobs.
// Stores that hold journals implement it so that old journals can be pruned.
type Deleter interface {
	// Delete removes the blob with the given ref.
	// It is not an error if no such blob is present.
	Delete(context.Context, Ref) error
}

// Delete removes the blob with the given ref from s,
// which must implement Deleter.
func Delete(ctx context.Context, s Store, ref Ref) error {
	d, ok := s.(Deleter)
	if !ok {
		return errors.Wrapf(ErrNotDeleter, "%T", s)
	}
	return d.Delete(ctx, ref)
}

// ErrNotDeleter is the error from Delete
// when the store does not implement Deleter.
var ErrNotDeleter = errors.New("store does not support deletion")

// ErrNotFound is the error returned
// when a Getter tries to access a non-existent ref.
var ErrNotFound = errors.New("not found")

// IsNotFound tells whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
