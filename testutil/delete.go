package testutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/blocksync/store"
)

// Delete tests that s, which must implement store.Deleter,
// removes exactly the blobs it is asked to,
// and that deleting an absent blob is not an error.
func Delete(ctx context.Context, t *testing.T, s store.Store) {
	var refs []store.Ref
	for _, b := range []string{"alpha", "beta", "gamma", "delta"} {
		ref, _, err := s.Put(ctx, store.Blob(b))
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
	}

	gone := refs[1]
	if err := store.Delete(ctx, s, gone); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, gone); !store.IsNotFound(err) {
		t.Errorf("got %v after delete, want not found", err)
	}
	if err := store.Delete(ctx, s, gone); err != nil {
		t.Errorf("deleting an absent blob: %s", err)
	}

	want := make(map[store.Ref]bool)
	for _, ref := range refs {
		if ref != gone {
			want[ref] = true
		}
	}
	got := make(map[store.Ref]bool)
	err := s.ListRefs(ctx, store.Zero, func(ref store.Ref) error {
		got[ref] = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("refs after delete mismatch (-want +got):\n%s", diff)
	}
}
