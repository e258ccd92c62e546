package store_test

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	. "github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/store/mem"
)

func TestSync(t *testing.T) {
	const text = `abc def ghi jkl mno pqr stu`

	var (
		ctx    = context.Background()
		words  = strings.Fields(text)
		stores = make([]Store, 0, len(words))
	)
	for i := range words {
		s := mem.New()
		stores = append(stores, s)
		for j, word := range words {
			if i == j {
				continue
			}

			_, _, err := s.Put(ctx, Blob(word))
			if err != nil {
				t.Fatal(err)
			}
		}
	}

	copied, err := Sync(ctx, stores)
	if err != nil {
		t.Fatal(err)
	}
	if copied != len(words) {
		t.Errorf("copied %d blobs, want %d", copied, len(words))
	}

	var refs []Ref
	err = stores[0].ListRefs(ctx, Zero, func(ref Ref) error {
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != len(words) {
		t.Fatalf("got %d refs, want %d", len(refs), len(words))
	}

	for i := 1; i < len(stores); i++ {
		s := stores[i]
		var refs2 []Ref
		err = s.ListRefs(ctx, Zero, func(ref Ref) error {
			refs2 = append(refs2, ref)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(refs, refs2); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}

	// A second pass has nothing to do.
	copied, err = Sync(ctx, stores)
	if err != nil {
		t.Fatal(err)
	}
	if copied != 0 {
		t.Errorf("second sync copied %d blobs, want 0", copied)
	}
}

// Fails every Get.
type brokenGetter struct {
	*mem.Store
}

func (brokenGetter) Get(context.Context, Ref) (Blob, error) {
	return nil, fmt.Errorf("boom")
}

func TestSyncErrorStopsListing(t *testing.T) {
	ctx := context.Background()

	src := mem.New()
	for i := 0; i < 10; i++ {
		if _, _, err := src.Put(ctx, Blob(fmt.Sprintf("blob %d", i))); err != nil {
			t.Fatal(err)
		}
	}

	before := runtime.NumGoroutine()

	_, err := Sync(ctx, []Store{brokenGetter{src}, mem.New()})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("got %v, want the Get error", err)
	}

	// The listing goroutines exit once Sync returns.
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("%d goroutines left running after Sync, want at most %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefHex(t *testing.T) {
	ref := Blob("yubnub").Ref()
	got, err := RefFromHex(ref.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("got %s, want %s", got, ref)
	}
	if _, err = RefFromHex("abc"); err == nil {
		t.Error("expected error for short hex ref")
	}
}

func TestIntParam(t *testing.T) {
	cases := []struct {
		conf    map[string]interface{}
		want    int
		wantOK  bool
		wantErr bool
	}{
		{conf: map[string]interface{}{}, want: 0, wantOK: false},
		{conf: map[string]interface{}{"n": 7}, want: 7, wantOK: true},
		{conf: map[string]interface{}{"n": float64(9)}, want: 9, wantOK: true},
		{conf: map[string]interface{}{"n": "x"}, wantErr: true},
	}
	for i, c := range cases {
		got, ok, err := IntParam(c.conf, "n")
		if c.wantErr {
			if err == nil {
				t.Errorf("case %d: expected error", i)
			}
			continue
		}
		if err != nil {
			t.Fatalf("case %d: %s", i, err)
		}
		if got != c.want || ok != c.wantOK {
			t.Errorf("case %d: got (%d, %v), want (%d, %v)", i, got, ok, c.want, c.wantOK)
		}
	}
}
