// Package journal records the destination blocks that a sync overwrites,
// so that the sync can be undone.
//
// Each displaced block is stored as a blob in a store.Store.
// When the sync finishes,
// Commit stores a manifest listing every block's offset and ref,
// and returns the manifest's ref.
// That ref is all Restore needs to put the destination back as it was.
package journal

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/blocksync"
	"github.com/bobg/blocksync/store"
)

var _ blocksync.Recorder = &Journal{}

const manifestKind = "blocksync-journal"

// Entry locates one displaced block.
type Entry struct {
	Offset int64     `json:"offset"`
	Len    int       `json:"len"`
	Ref    store.Ref `json:"ref"`
}

// Manifest describes one sync run.
type Manifest struct {
	Kind       string    `json:"kind"`
	BlockSize  int       `json:"block_size"`
	OrigSize   int64     `json:"orig_size"`   // destination length before the sync
	SourceSize int64     `json:"source_size"` // source length, i.e. how far the sync reached
	Started    time.Time `json:"started"`
	Entries    []Entry   `json:"entries"`
}

// Journal is a blocksync.Recorder that saves displaced blocks to a store.
type Journal struct {
	s     store.Store
	m     Manifest
	begun bool
	added int
}

// New produces a Journal saving to s.
func New(s store.Store) *Journal {
	return &Journal{s: s}
}

// Begin implements blocksync.Recorder.
func (j *Journal) Begin(_ context.Context, blockSize int, srcSize, dstSize int64) error {
	if j.begun {
		return errors.New("journal already begun")
	}
	j.begun = true
	j.m = Manifest{
		Kind:       manifestKind,
		BlockSize:  blockSize,
		OrigSize:   dstSize,
		SourceSize: srcSize,
		Started:    time.Now().UTC(),
	}
	return nil
}

// Record implements blocksync.Recorder.
// Bytes at or beyond the destination's original length are not saved,
// since they did not exist before the sync grew the destination.
func (j *Journal) Record(ctx context.Context, offset int64, old []byte) error {
	if !j.begun {
		return errors.New("journal not begun")
	}
	if offset >= j.m.OrigSize {
		return nil
	}
	if avail := j.m.OrigSize - offset; avail < int64(len(old)) {
		old = old[:avail]
	}
	ref, added, err := j.s.Put(ctx, old)
	if err != nil {
		return errors.Wrapf(err, "storing block at offset %d", offset)
	}
	if added {
		j.added++
	}
	j.m.Entries = append(j.m.Entries, Entry{Offset: offset, Len: len(old), Ref: ref})
	return nil
}

// Len is the number of blocks recorded so far.
func (j *Journal) Len() int {
	return len(j.m.Entries)
}

// Added is the number of distinct blobs the journal added to its store.
// It is less than Len when displaced blocks repeat
// or were already in the store.
func (j *Journal) Added() int {
	return j.added
}

// Commit stores the manifest and returns its ref.
func (j *Journal) Commit(ctx context.Context) (store.Ref, error) {
	if !j.begun {
		return store.Zero, errors.New("journal not begun")
	}
	b, err := json.Marshal(j.m)
	if err != nil {
		return store.Zero, errors.Wrap(err, "marshaling manifest")
	}
	ref, _, err := j.s.Put(ctx, b)
	return ref, errors.Wrap(err, "storing manifest")
}

// Load gets the manifest with the given ref.
func Load(ctx context.Context, g store.Getter, ref store.Ref) (*Manifest, error) {
	b, err := g.Get(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "getting manifest %s", ref)
	}
	var m Manifest
	err = json.Unmarshal(b, &m)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding manifest %s", ref)
	}
	if m.Kind != manifestKind {
		return nil, errors.Errorf("blob %s is not a journal manifest", ref)
	}
	return &m, nil
}

// Dest is what Restore writes to.
// An *os.File opened for writing satisfies it.
type Dest interface {
	io.WriterAt
	Truncate(size int64) error
}

// Restore undoes the sync recorded in the manifest with the given ref.
// It writes every saved block back to dst
// and, if the sync grew dst,
// truncates dst to its original length.
// It returns the number of blocks written.
//
// Blocks are fetched and written one at a time, last first;
// if fetching fails partway,
// dst is left with only the blocks after the failing one restored.
func Restore(ctx context.Context, g store.Getter, ref store.Ref, dst Dest) (int, error) {
	m, err := Load(ctx, g, ref)
	if err != nil {
		return 0, err
	}

	var restored int
	for i := len(m.Entries) - 1; i >= 0; i-- {
		e := m.Entries[i]
		b, err := g.Get(ctx, e.Ref)
		if err != nil {
			return restored, errors.Wrapf(err, "getting block at offset %d", e.Offset)
		}
		if len(b) != e.Len {
			return restored, errors.Errorf("block at offset %d has %d bytes, want %d", e.Offset, len(b), e.Len)
		}
		_, err = dst.WriteAt(b, e.Offset)
		if err != nil {
			return restored, errors.Wrapf(err, "writing block at offset %d", e.Offset)
		}
		restored++
	}

	if m.SourceSize > m.OrigSize {
		err = dst.Truncate(m.OrigSize)
		if err != nil {
			return restored, errors.Wrapf(err, "truncating to original size %d", m.OrigSize)
		}
	}

	return restored, nil
}

// Refs lists the refs of the blocks saved in the manifest with the given ref.
// It is a gc.ProtectFunc,
// so that pruning a journal store can keep chosen journals intact.
func Refs(ctx context.Context, g store.Getter, ref store.Ref) ([]store.Ref, error) {
	m, err := Load(ctx, g, ref)
	if err != nil {
		return nil, err
	}
	refs := make([]store.Ref, 0, len(m.Entries))
	for _, e := range m.Entries {
		refs = append(refs, e.Ref)
	}
	return refs, nil
}
