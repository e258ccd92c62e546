package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Sync synchronizes two or more stores.
// It runs ListRefs on all input stores.
// When a ref is found to be in some but not all stores,
// its blob is added to the stores where it's missing.
// It returns the number of blobs copied.
func Sync(ctx context.Context, stores []Store) (int, error) {
	if len(stores) < 2 {
		return 0, nil
	}

	type tuple struct {
		s   Store
		ch  <-chan Ref
		ref *Ref
	}

	// Canceling on return unblocks any ListRefs goroutine still sending.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx2 := errgroup.WithContext(ctx)

	tuples := make([]*tuple, 0, len(stores))
	for _, s := range stores {
		s := s
		ch := make(chan Ref)
		eg.Go(func() error {
			defer close(ch)
			return s.ListRefs(ctx2, Zero, func(ref Ref) error {
				select {
				case <-ctx2.Done():
					return ctx2.Err()
				case ch <- ref:
				}
				return nil
			})
		})
		tuples = append(tuples, &tuple{s: s, ch: ch})
	}

	errch := make(chan error, 1)

	go func() {
		errch <- eg.Wait()
		close(errch)
	}()

	var copied int

	// Each round advances every store that held the previous smallest ref.
	// Initially that is all of them.
	havers := tuples
	for {
		for _, tup := range havers {
			select {
			case <-ctx.Done():
				return copied, ctx.Err()
			case ref, ok := <-tup.ch:
				if ok {
					ref := ref
					tup.ref = &ref
				} else {
					tup.ref = nil
				}
			}
		}

		sort.Slice(tuples, func(i, j int) bool {
			ri := tuples[i].ref
			rj := tuples[j].ref
			if ri != nil {
				if rj != nil {
					return ri.Less(*rj)
				}
				return true
			}
			return false
		})

		if tuples[0].ref == nil {
			// We've reached the end of input on all channels.
			return copied, <-errch
		}

		ref := *(tuples[0].ref)

		havers = []*tuple{tuples[0]}
		i := 1
		for i < len(tuples) && tuples[i].ref != nil && *(tuples[i].ref) == ref {
			havers = append(havers, tuples[i])
			i++
		}

		// Stores after the havers lack ref.
		needers := tuples[i:]
		if len(needers) == 0 {
			continue
		}

		blob, err := havers[0].s.Get(ctx, ref)
		if err != nil {
			return copied, errors.Wrapf(err, "getting blob for %s", ref)
		}

		for _, tup := range needers {
			_, added, err := tup.s.Put(ctx, blob)
			if err != nil {
				return copied, errors.Wrapf(err, "storing blob for %s", ref)
			}
			if added {
				copied++
			}
		}
	}
}
