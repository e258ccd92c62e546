// Command blocksync makes a destination file or block device match a source,
// rewriting only the blocks that differ.
//
// Usage:
//
//   blocksync [sync] [-journal CONF] [-interval DUR] SRC DST [BLOCKSIZE]
//   blocksync verify [-interval DUR] SRC DST [BLOCKSIZE]
//   blocksync restore -journal CONF -ref REF DST
//   blocksync journal-sync CONF CONF...
//   blocksync journal-prune -journal CONF REF...
//   blocksync journal-serve -journal CONF [-addr ADDR]
//
// The sync subcommand is the default,
// so `blocksync SRC DST` works.
// BLOCKSIZE is in bytes and defaults to 4096.
// DST is created if it does not exist,
// grown to the length of SRC if it is shorter,
// and never truncated.
// A progress line goes to standard output every 30 seconds (see -interval) and at the end.
//
// With -journal,
// the previous content of every rewritten block is saved to the blob store
// described by the JSON config file CONF,
// and the ref of the journal's manifest is logged when the sync ends.
// A config file names a store type and its parameters, e.g.:
//
//   {"type": "file", "root": "/var/lib/blocksync"}
//   {"type": "sqlite3", "conn": "/var/lib/blocksync/journal.db"}
//   {"type": "bolt", "path": "/var/lib/blocksync/journal.bolt"}
//   {"type": "transform", "transformer": "bzip2", "nested": {"type": "gcs", "bucket": "my-journals"}}
//   {"type": "rpc", "addr": "backup-host:7070", "insecure": true}
//
// Other types are pg, mem, lru, and logging.
// The transform type also accepts "flate" and "lzw" transformers.
//
// The restore subcommand replays a journal onto DST,
// undoing the sync that produced it.
// The verify subcommand compares without writing
// and exits non-zero if any block differs.
// The journal-sync subcommand copies journal blobs among stores
// until all of them hold the same set.
// The journal-prune subcommand deletes every blob in a journal store
// except the named journals and the blocks they saved.
// The journal-serve subcommand serves a journal store over gRPC
// to clients configured with the rpc type.
// It runs until interrupted.
//
// DST is held under an advisory lock during sync and restore.
package main
