package main

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/bobg/flock"
	"github.com/bobg/subcmd"
	"github.com/pkg/errors"

	"github.com/bobg/blocksync"
	_ "github.com/bobg/blocksync/store/bolt"
	_ "github.com/bobg/blocksync/store/file"
	_ "github.com/bobg/blocksync/store/gcs"
	_ "github.com/bobg/blocksync/store/logging"
	_ "github.com/bobg/blocksync/store/lru"
	_ "github.com/bobg/blocksync/store/mem"
	_ "github.com/bobg/blocksync/store/pg"
	_ "github.com/bobg/blocksync/store/rpc"
	_ "github.com/bobg/blocksync/store/sqlite3"
	_ "github.com/bobg/blocksync/store/transform"
)

type maincmd struct {
	stdout io.Writer
	log    *log.Logger
}

func main() {
	log.SetFlags(0)

	c := maincmd{stdout: os.Stdout, log: log.Default()}
	err := c.run(context.Background(), os.Args[1:])
	if err != nil {
		log.Fatalf("error: %s", err)
	}
}

func (c maincmd) run(ctx context.Context, args []string) error {
	return subcmd.Run(ctx, c, c.route(args))
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"sync", c.sync, subcmd.Params(
			"journal", subcmd.String, "", "config file of a blob store for the undo journal (default: no journal)",
			"interval", subcmd.Duration, blocksync.DefaultInterval, "time between progress lines",
		),
		"verify", c.verify, subcmd.Params(
			"interval", subcmd.Duration, blocksync.DefaultInterval, "time between progress lines",
		),
		"restore", c.restore, subcmd.Params(
			"journal", subcmd.String, "", "config file of the blob store holding the journal",
			"ref", subcmd.String, "", "ref of the journal manifest, as logged by sync",
		),
		"journal-sync", c.journalSync, nil,
		"journal-prune", c.journalPrune, subcmd.Params(
			"journal", subcmd.String, "", "config file of the blob store holding the journals",
		),
		"journal-serve", c.journalServe, subcmd.Params(
			"journal", subcmd.String, "", "config file of the blob store to serve",
			"addr", subcmd.String, ":7070", "address to listen on",
		),
	)
}

// Arguments that don't begin with a subcommand name are for sync.
func (c maincmd) route(args []string) []string {
	if len(args) > 0 {
		if _, ok := c.Subcmds()[args[0]]; ok {
			return args
		}
	}
	return append([]string{"sync"}, args...)
}

// Parses the SRC DST [BLOCKSIZE] arguments of sync and verify.
func parseSyncArgs(args []string) (src, dst string, blockSize int, err error) {
	if len(args) < 2 || len(args) > 3 {
		return "", "", 0, errors.New("usage: SRC DST [BLOCKSIZE]")
	}
	blockSize = 4096
	if len(args) == 3 {
		blockSize, err = strconv.Atoi(args[2])
		if err != nil {
			return "", "", 0, errors.Wrapf(err, "parsing block size %s", args[2])
		}
		if blockSize <= 0 {
			return "", "", 0, errors.Errorf("block size must be positive, got %d", blockSize)
		}
	}
	return args[0], args[1], blockSize, nil
}

// Holds an advisory lock on path while f runs,
// so that two runs never patch one destination at once.
func withLock(path string, f func() error) (err error) {
	var flocker flock.Locker

	if err = flocker.Lock(path); err != nil {
		return errors.Wrapf(err, "locking %s", path)
	}
	defer func() {
		if uerr := flocker.Unlock(path); uerr != nil && err == nil {
			err = errors.Wrapf(uerr, "unlocking %s", path)
		}
	}()

	return f()
}
