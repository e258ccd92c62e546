// Package testutil holds conformance tests shared by the blob store implementations.
package testutil

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/bobg/blocksync/store"
)

// Data produces a deterministic pseudorandom test payload
// with some repeated stretches,
// so that stores see both distinct and duplicate blocks.
func Data(t *testing.T) []byte {
	t.Helper()

	r := rand.New(rand.NewSource(1))
	data := make([]byte, 256*1024)
	r.Read(data)
	copy(data[64*1024:], data[:32*1024])
	for i := 192 * 1024; i < 224*1024; i++ {
		data[i] = 0
	}
	return data
}

// ReadWrite permits testing a Store implementation
// by writing some data to it in 4KiB blocks,
// then reading each block back out to make sure it's the same.
func ReadWrite(ctx context.Context, t *testing.T, s store.Store, data []byte) {
	const blockSize = 4096

	var refs []store.Ref

	t1 := time.Now()
	for pos := 0; pos < len(data); pos += blockSize {
		end := pos + blockSize
		if end > len(data) {
			end = len(data)
		}
		ref, _, err := s.Put(ctx, data[pos:end])
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
	}
	t.Logf("wrote %d bytes in %s", len(data), time.Since(t1))

	buf := new(bytes.Buffer)
	t2 := time.Now()
	for _, ref := range refs {
		blob, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("getting %s: %s", ref, err)
		}
		buf.Write(blob)
	}
	got := buf.Bytes()
	t.Logf("read %d bytes in %s", len(got), time.Since(t2))

	if len(got) != len(data) {
		t.Errorf("got length %d, want %d", len(got), len(data))
	} else {
		for i := 0; i < len(got); i++ {
			if got[i] != data[i] {
				t.Fatalf("mismatch at position %d (of %d)", i, len(got))
			}
		}
	}

	var missing store.Ref
	missing[0] = 1
	if _, err := s.Get(ctx, missing); !store.IsNotFound(err) {
		t.Errorf("got error %v for missing ref, want not found", err)
	}
}
