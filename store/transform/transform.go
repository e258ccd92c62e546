// Package transform implements a blob store that can transform blobs into and out of a nested store.
package transform

import (
	"compress/lzw"
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

// Store is a blob store wrapping a nested store and a Transformer.
// Blobs are transformed according to the Transformer on their way in and out of the nested store.
//
// The refs that Put returns and ListRefs produces are those of the transformed blobs,
// i.e. the refs the nested store knows them by.
// Get takes such a ref and returns the untransformed blob.
// Stores replicated with store.Sync should therefore share a Transformer.
type Store struct {
	s store.Store
	x Transformer
}

// Transformer tells how to transform a blob on its way into and out of a Store.
// Out should be the inverse of In,
// and In should be deterministic so that equal blobs get equal refs.
type Transformer interface {
	// In transforms a blob on its way into the store.
	In(context.Context, []byte) ([]byte, error)

	// Out transforms a blob on its way out of the store.
	Out(context.Context, []byte) ([]byte, error)
}

// New produces a new Store.
func New(s store.Store, x Transformer) *Store {
	return &Store{s: s, x: x}
}

func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Blob, error) {
	blob, err := s.s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	out, err := s.x.Out(ctx, blob)
	return out, errors.Wrapf(err, "untransforming blob %s", ref)
}

func (s *Store) Put(ctx context.Context, blob store.Blob) (store.Ref, bool, error) {
	tblob, err := s.x.In(ctx, blob)
	if err != nil {
		return store.Zero, false, errors.Wrap(err, "transforming blob")
	}
	ref, added, err := s.s.Put(ctx, tblob)
	return ref, added, errors.Wrap(err, "storing transformed blob")
}

// Delete removes a transformed blob from the nested store.
func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	return store.Delete(ctx, s.s, ref)
}

func (s *Store) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	return s.s.ListRefs(ctx, start, f)
}

func init() {
	store.Register("transform", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		nestedStore, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		transformer, ok := conf["transformer"].(string)
		if !ok {
			return nil, errors.New(`missing "transformer" parameter`)
		}
		switch transformer {
		case "lzw":
			order := lzw.LSB
			o, ok, err := store.IntParam(conf, "order")
			if err != nil {
				return nil, err
			}
			if ok && lzw.Order(o) == lzw.MSB {
				order = lzw.MSB
			}
			return New(nestedStore, LZW{Order: order}), nil

		case "flate":
			level, ok, err := store.IntParam(conf, "level")
			if err != nil {
				return nil, err
			}
			if !ok {
				level = -1
			}
			return New(nestedStore, Flate{Level: level}), nil

		case "bzip2":
			level, _, err := store.IntParam(conf, "level")
			if err != nil {
				return nil, err
			}
			return New(nestedStore, Bzip2{Level: level}), nil

		default:
			return nil, fmt.Errorf(`unknown transformer "%s"`, transformer)
		}
	})
}
