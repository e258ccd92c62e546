package lru

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/store/mem"
	"github.com/bobg/blocksync/testutil"
)

func TestStore(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.ReadWrite(context.Background(), t, s, testutil.Data(t))
}

func TestAllRefs(t *testing.T) {
	testutil.AllRefs(context.Background(), t, func() store.Store {
		s, err := New(mem.New(), 100)
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestCached(t *testing.T) {
	ctx := context.Background()

	nested := mem.New()
	ref, _, err := nested.Put(ctx, store.Blob("abc"))
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(nested, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.Get(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if !s.c.Contains(ref) {
		t.Error("blob not cached after Get")
	}
}

func TestDelete(t *testing.T) {
	s, err := New(mem.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Delete(context.Background(), t, s)
}

func TestDeleteUnsupported(t *testing.T) {
	s, err := New(getterOnly{mem.New()}, 10)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Delete(context.Background(), store.Blob("abc").Ref())
	if !errors.Is(err, store.ErrNotDeleter) {
		t.Errorf("got %v, want ErrNotDeleter", err)
	}
}

// Hides the Delete method of the embedded store.
type getterOnly struct {
	store.Store
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()

	nested := mem.New()
	s, err := New(nested, 10)
	if err != nil {
		t.Fatal(err)
	}

	// One blob cached by Put, one fetched from the nested store on first Get.
	putRef, _, err := s.Put(ctx, store.Blob("abc"))
	if err != nil {
		t.Fatal(err)
	}
	missRef, _, err := nested.Put(ctx, store.Blob("def"))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		ref  store.Ref
		want string
	}{
		{ref: putRef, want: "abc"},
		{ref: missRef, want: "def"},
	}
	for _, c := range cases {
		for i := 0; i < 3; i++ {
			got, err := s.Get(ctx, c.ref)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != c.want {
				t.Fatalf("Get %d of %s: got %q, want %s", i, c.want, got, c.want)
			}
			got[0] = 'x'
		}
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	conf := map[string]interface{}{
		"size":   10,
		"nested": map[string]interface{}{"type": "mem"},
	}
	s, err := store.Create(ctx, "lru", conf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Store); !ok {
		t.Errorf("got %T, want *Store", s)
	}

	delete(conf, "size")
	if _, err = store.Create(ctx, "lru", conf); err == nil {
		t.Error("expected error for missing size")
	}
}
