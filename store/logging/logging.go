// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

// Store logs each call before handing back the nested store's result.
type Store struct {
	s store.Store
	l *log.Logger
}

// New produces a Store logging to the standard logger.
func New(s store.Store) *Store {
	return NewWithLogger(s, log.Default())
}

// NewWithLogger produces a Store logging to l.
func NewWithLogger(s store.Store, l *log.Logger) *Store {
	return &Store{s: s, l: l}
}

func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Blob, error) {
	b, err := s.s.Get(ctx, ref)
	if err != nil {
		s.l.Printf("ERROR Get %s: %s", ref, err)
	} else {
		s.l.Printf("Get %s (%d bytes)", ref, len(b))
	}
	return b, err
}

func (s *Store) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	s.l.Printf("ListRefs, start=%s", start)
	return s.s.ListRefs(ctx, start, func(ref store.Ref) error {
		err := f(ref)
		if err != nil {
			s.l.Printf("  ERROR in ListRefs: %s: %s", ref, err)
		} else {
			s.l.Printf("  ListRefs: %s", ref)
		}
		return err
	})
}

func (s *Store) Put(ctx context.Context, b store.Blob) (store.Ref, bool, error) {
	ref, added, err := s.s.Put(ctx, b)
	if err != nil {
		s.l.Printf("ERROR in Put: %s", err)
	} else {
		s.l.Printf("Put %s (%d bytes), added=%v", ref, len(b), added)
	}
	return ref, added, err
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	err := store.Delete(ctx, s.s, ref)
	if err != nil {
		s.l.Printf("ERROR Delete %s: %s", ref, err)
	} else {
		s.l.Printf("Delete %s", ref)
	}
	return err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		nestedStore, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nestedStore), nil
	})
}
