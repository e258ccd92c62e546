// Package gcs implements a blob store on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Store{}
	_ store.Deleter = &Store{}
)

// Store is a Google Cloud Storage-based implementation of a blob store.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Blob, error) {
	var (
		name = blobObjName(ref)
		b    []byte
	)
	err := retry(ctx, func() error {
		r, err := s.bucket.Object(name).NewReader(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		b = make([]byte, r.Attrs.Size)
		_, err = io.ReadFull(r, b)
		return err
	})
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, store.ErrNotFound
	}
	return b, errors.Wrapf(err, "reading object %s", name)
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b store.Blob) (store.Ref, bool, error) {
	var (
		ref  = b.Ref()
		name = blobObjName(ref)
		obj  = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
	)

	err := retry(ctx, func() error {
		w := obj.NewWriter(ctx)

		// The precondition failure surfaces from Write or from Close,
		// depending on how much was buffered.
		_, err := w.Write(b)
		if err == nil {
			return w.Close()
		}
		w.Close()
		return err
	})

	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return ref, false, nil
	}
	if err != nil {
		return store.Zero, false, errors.Wrapf(err, "writing object %s", name)
	}
	return ref, true, nil
}

// Delete removes the blob with hash `ref`.
func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	name := blobObjName(ref)
	err := retry(ctx, func() error {
		return s.bucket.Object(name).Delete(ctx)
	})
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return errors.Wrapf(err, "deleting object %s", name)
}

// Calls f until it succeeds,
// fails with an error other than a rate limit or server error,
// or a minute has passed.
func retry(ctx context.Context, f func() error) error {
	bkoff := backoff.NewExponentialBackOff()
	bkoff.MaxElapsedTime = time.Minute

	return backoff.Retry(
		func() error {
			err := f()
			if err != nil && !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(bkoff, ctx),
	)
}

func isTransient(err error) bool {
	var e *googleapi.Error
	if !stderrs.As(err, &e) {
		return false
	}
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	// Google Cloud Storage iterators have no API for starting in the middle of a bucket.
	// But they can filter by object-name prefix.
	// So we take (the hex encoding of) `start` and repeatedly compute prefixes for the objects we want.
	// If `start` is e67a, for example, the sequence of generated prefixes is:
	//   e67b e67c e67d e67e e67f
	//   e68 e69 e6a e6b e6c e6d e6e e6f
	//   e7 e8 e9 ea eb ec ed ee ef
	//   f
	return eachHexPrefix(start.String(), false, func(prefix string) error {
		return s.listRefs(ctx, prefix, f)
	})
}

func (s *Store) listRefs(ctx context.Context, prefix string, f func(store.Ref) error) error {
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: "b:" + prefix})
	for {
		obj, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "listing objects with prefix %s", prefix)
		}
		ref, err := refFromBlobObjName(obj.Name)
		if err != nil {
			continue
		}
		err = f(ref)
		if err != nil {
			return err
		}
	}
}

func eachHexPrefix(prefix string, incl bool, f func(string) error) error {
	prefix = strings.ToLower(prefix)
	for len(prefix) > 0 {
		end := hexval(prefix[len(prefix)-1])
		if !incl {
			end++
		}
		prefix = prefix[:len(prefix)-1]
		for c := end; c < 16; c++ {
			err := f(prefix + string(hexdigit(c)))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func hexval(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b - '0')
	case 'a' <= b && b <= 'f':
		return int(10 + b - 'a')
	case 'A' <= b && b <= 'F':
		return int(10 + b - 'A')
	}
	return 0
}

func hexdigit(n int) byte {
	if n < 10 {
		return byte(n + '0')
	}
	return byte(n - 10 + 'a')
}

func blobObjName(ref store.Ref) string {
	return "b:" + ref.String()
}

func refFromBlobObjName(name string) (store.Ref, error) {
	if !strings.HasPrefix(name, "b:") {
		return store.Zero, errors.Errorf("malformed object name %s", name)
	}
	return store.RefFromHex(name[2:])
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		var options []option.ClientOption
		if creds, ok := conf["creds"].(string); ok {
			options = append(options, option.WithCredentialsFile(creds))
		}
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
