package file

import (
	"context"
	"os"
	"testing"

	"github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/testutil"
)

func TestStore(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.ReadWrite(context.Background(), t, New(dirname), testutil.Data(t))
}

func TestAllRefs(t *testing.T) {
	var dirs []string
	defer func() {
		for _, d := range dirs {
			os.RemoveAll(d)
		}
	}()

	testutil.AllRefs(context.Background(), t, func() store.Store {
		dirname, err := os.MkdirTemp("", "filestore")
		if err != nil {
			t.Fatal(err)
		}
		dirs = append(dirs, dirname)
		return New(dirname)
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	if _, err := store.Create(ctx, "file", map[string]interface{}{}); err == nil {
		t.Error("expected error for missing root")
	}

	s, err := store.Create(ctx, "file", map[string]interface{}{"root": t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Store); !ok {
		t.Errorf("got %T, want *Store", s)
	}
}

func TestDelete(t *testing.T) {
	testutil.Delete(context.Background(), t, New(t.TempDir()))
}
