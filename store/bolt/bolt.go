// Package bolt implements a blob store in a bbolt database file.
package bolt

import (
	"context"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

var bucketBlobs = []byte("blobs")

// Store is a bbolt-based blob store.
// Blobs live in a single bucket keyed by ref.
type Store struct {
	db *bolt.DB
}

// New produces a new Store using `db` for storage,
// creating its bucket if needed.
func New(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	return &Store{db: db}, errors.Wrap(err, "creating bucket")
}

// Open opens (creating if necessary) the database file at path
// and produces a Store on it.
// It waits up to a second for another process to release the file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(_ context.Context, ref store.Ref) (store.Blob, error) {
	var blob store.Blob
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get(ref[:])
		if v == nil {
			return store.ErrNotFound
		}
		// v is valid only for the life of the transaction.
		blob = make(store.Blob, len(v))
		copy(blob, v)
		return nil
	})
	if store.IsNotFound(err) {
		return nil, err
	}
	return blob, errors.Wrapf(err, "getting blob %s", ref)
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, b store.Blob) (store.Ref, bool, error) {
	var (
		ref   = b.Ref()
		added bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket.Get(ref[:]) != nil {
			return nil
		}
		added = true
		cp := make([]byte, len(b))
		copy(cp, b)
		return bucket.Put(ref[:], cp)
	})
	if err != nil {
		return store.Zero, false, errors.Wrapf(err, "storing blob %s", ref)
	}
	return ref, added, nil
}

// Delete removes the blob with hash `ref`.
func (s *Store) Delete(_ context.Context, ref store.Ref) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete(ref[:])
	})
	return errors.Wrapf(err, "deleting blob %s", ref)
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(_ context.Context, start store.Ref, f func(store.Ref) error) error {
	// The callback may write to this store,
	// which must not happen inside a read transaction.
	var refs []store.Ref
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlobs).Cursor()
		for k, _ := c.Seek(start[:]); k != nil; k, _ = c.Next() {
			ref := store.RefFromBytes(k)
			if ref == start {
				continue
			}
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "listing refs")
	}

	for _, ref := range refs {
		if err = f(ref); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("bolt", func(_ context.Context, conf map[string]interface{}) (store.Store, error) {
		path, ok := conf["path"].(string)
		if !ok {
			return nil, errors.New(`missing "path" parameter`)
		}
		return Open(path)
	})
}
