package mem

import (
	"context"
	"testing"

	"github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/testutil"
)

func TestStore(t *testing.T) {
	testutil.ReadWrite(context.Background(), t, New(), testutil.Data(t))
}

func TestAllRefs(t *testing.T) {
	testutil.AllRefs(context.Background(), t, func() store.Store { return New() })
}

func TestPutCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	buf := []byte("abc")
	ref, added, err := s.Put(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("first Put did not add")
	}
	buf[0] = 'x'

	got, err := s.Get(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestDelete(t *testing.T) {
	testutil.Delete(context.Background(), t, New())
}
