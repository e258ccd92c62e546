// Package blocksync makes a destination file match a source file block by block.
//
// Both files are read in fixed-size blocks.
// Blocks that already match are left alone;
// blocks that differ are rewritten from the source.
// This makes repeated copies of a disk image onto a block device
// (or onto a previous copy of that image)
// much cheaper on media where writes are slow or wear the device,
// since only the changed blocks are written.
//
// The destination is grown to the source's length first when it is shorter.
// It is never truncated:
// a destination longer than the source keeps its tail.
//
// Equality is decided by comparing bytes,
// never by comparing hashes.
//
// Optionally the previous content of every rewritten block can be saved
// to an undo journal
// (see the journal subpackage),
// so that a sync can be rolled back.
package blocksync
