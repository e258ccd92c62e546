package journal

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/blocksync"
	"github.com/bobg/blocksync/gc"
	"github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/store/mem"
)

func TestRestore(t *testing.T) {
	cases := []struct {
		name             string
		srcSize, dstSize int
	}{
		{name: "same size", srcSize: 20000, dstSize: 20000},
		{name: "grown", srcSize: 20000, dstSize: 9000},
		{name: "grown from empty", srcSize: 5000, dstSize: 0},
		{name: "longer destination", srcSize: 9000, dstSize: 20000},
	}

	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var (
				ctx     = context.Background()
				src     = randBytes(int64(2*i), c.srcSize)
				orig    = randBytes(int64(2*i+1), c.dstSize)
				dstPath = filepath.Join(t.TempDir(), "dst")
			)

			// Make one block match so that it is not journaled.
			if c.dstSize >= 4096 && c.srcSize >= 4096 {
				copy(orig[:4096], src[:4096])
			}

			if err := os.WriteFile(dstPath, orig, 0644); err != nil {
				t.Fatal(err)
			}
			dst, err := os.OpenFile(dstPath, os.O_RDWR, 0)
			if err != nil {
				t.Fatal(err)
			}
			defer dst.Close()

			var (
				s = mem.New()
				j = New(s)
			)
			stats, err := blocksync.Sync(ctx, bytes.NewReader(src), dst, blocksync.Journal(j), blocksync.Reporter(func(blocksync.Snapshot) {}))
			if err != nil {
				t.Fatal(err)
			}
			ref, err := j.Commit(ctx)
			if err != nil {
				t.Fatal(err)
			}

			m, err := Load(ctx, s, ref)
			if err != nil {
				t.Fatal(err)
			}
			if m.OrigSize != int64(c.dstSize) || m.SourceSize != int64(c.srcSize) || m.BlockSize != blocksync.DefaultBlockSize {
				t.Errorf("got manifest sizes (orig %d, source %d, block %d), want (%d, %d, %d)", m.OrigSize, m.SourceSize, m.BlockSize, c.dstSize, c.srcSize, blocksync.DefaultBlockSize)
			}

			// Only blocks that overlap the original destination are journaled.
			var wantEntries int64
			for pos := 0; pos < c.srcSize && pos < c.dstSize; pos += blocksync.DefaultBlockSize {
				wantEntries++
			}
			if c.dstSize >= 4096 && c.srcSize >= 4096 {
				wantEntries--
			}
			if int64(len(m.Entries)) != wantEntries {
				t.Errorf("got %d journal entries, want %d (%d blocks patched)", len(m.Entries), wantEntries, stats.Bad)
			}

			synced, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(synced[:c.srcSize], src) {
				t.Fatal("sync did not make destination match source")
			}

			n, err := Restore(ctx, s, ref, dst)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(m.Entries) {
				t.Errorf("restored %d blocks, want %d", n, len(m.Entries))
			}

			got, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(orig) {
				t.Fatalf("restored destination has length %d, want %d", len(got), len(orig))
			}
			if !bytes.Equal(got, orig) {
				t.Error("restored destination differs from original")
			}
		})
	}
}

func TestRecordClipsToOrigSize(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		j   = New(s)
	)
	if err := j.Begin(ctx, 100, 250, 150); err != nil {
		t.Fatal(err)
	}

	block := bytes.Repeat([]byte{9}, 100)
	for _, off := range []int64{0, 100, 200} {
		if err := j.Record(ctx, off, block); err != nil {
			t.Fatal(err)
		}
	}

	want := []Entry{
		{Offset: 0, Len: 100, Ref: store.Blob(block).Ref()},
		{Offset: 100, Len: 50, Ref: store.Blob(block[:50]).Ref()},
	}
	if diff := cmp.Diff(want, j.m.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if j.Len() != 2 || j.Added() != 2 {
		t.Errorf("got Len %d, Added %d; want 2, 2", j.Len(), j.Added())
	}
}

func TestRepeatedBlocks(t *testing.T) {
	var (
		ctx   = context.Background()
		s     = mem.New()
		j     = New(s)
		block = make([]byte, 512)
	)
	if err := j.Begin(ctx, 512, 4096, 4096); err != nil {
		t.Fatal(err)
	}
	for off := int64(0); off < 4096; off += 512 {
		if err := j.Record(ctx, off, block); err != nil {
			t.Fatal(err)
		}
	}
	if j.Len() != 8 {
		t.Errorf("got %d entries, want 8", j.Len())
	}
	if j.Added() != 1 || s.Len() != 1 {
		t.Errorf("added %d blobs (store has %d), want 1", j.Added(), s.Len())
	}
}

func TestLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	j := New(mem.New())

	if err := j.Record(ctx, 0, []byte("x")); err == nil {
		t.Error("expected error recording before Begin")
	}
	if _, err := j.Commit(ctx); err == nil {
		t.Error("expected error committing before Begin")
	}
	if err := j.Begin(ctx, 1, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := j.Begin(ctx, 1, 1, 1); err == nil {
		t.Error("expected error from second Begin")
	}
}

func TestLoadNotManifest(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	ref, _, err := s.Put(ctx, store.Blob(`{"kind":"something else"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = Load(ctx, s, ref); err == nil {
		t.Error("expected error loading a non-manifest blob")
	}

	if _, err = Load(ctx, s, store.Blob("missing").Ref()); !store.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestRestoreMissingBlock(t *testing.T) {
	var (
		ctx   = context.Background()
		full  = mem.New()
		j     = New(full)
		block = []byte("old content")
	)
	if err := j.Begin(ctx, len(block), int64(len(block)), int64(len(block))); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, 0, block); err != nil {
		t.Fatal(err)
	}
	ref, err := j.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// A store holding only the manifest.
	partial := mem.New()
	manifest, err := full.Get(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err = partial.Put(ctx, manifest); err != nil {
		t.Fatal(err)
	}

	dst, err := os.Create(filepath.Join(t.TempDir(), "dst"))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	n, err := Restore(ctx, partial, ref, dst)
	if !store.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
	if n != 0 {
		t.Errorf("restored %d blocks, want 0", n)
	}
}

func TestPrune(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
	)

	// Two journals over the same 3-block destination.
	commit := func(fill byte) store.Ref {
		j := New(s)
		if err := j.Begin(ctx, 10, 30, 30); err != nil {
			t.Fatal(err)
		}
		for off := int64(0); off < 30; off += 10 {
			if err := j.Record(ctx, off, bytes.Repeat([]byte{fill + byte(off)}, 10)); err != nil {
				t.Fatal(err)
			}
		}
		ref, err := j.Commit(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return ref
	}
	var (
		keep = commit(1)
		drop = commit(100)
	)
	if s.Len() != 8 {
		t.Fatalf("store has %d blobs, want 8", s.Len())
	}

	k := gc.NewMemKeep()
	if err := gc.Protect(ctx, s, k, keep, Refs); err != nil {
		t.Fatal(err)
	}
	deleted, err := gc.Run(ctx, s, k)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 4 {
		t.Errorf("deleted %d blobs, want 4", deleted)
	}

	if _, err = Load(ctx, s, drop); !store.IsNotFound(err) {
		t.Errorf("got %v loading pruned journal, want not found", err)
	}

	refs, err := Refs(ctx, s, keep)
	if err != nil {
		t.Fatal(err)
	}
	for _, ref := range refs {
		if _, err = s.Get(ctx, ref); err != nil {
			t.Errorf("kept block %s: %s", ref, err)
		}
	}
}

func randBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}
