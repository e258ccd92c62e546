package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/blocksync"
	"github.com/bobg/blocksync/journal"
	"github.com/bobg/blocksync/store"
)

func (c maincmd) sync(ctx context.Context, journalConf string, interval time.Duration, args []string) error {
	srcPath, dstPath, blockSize, err := parseSyncArgs(args)
	if err != nil {
		return err
	}

	var j *journal.Journal
	if journalConf != "" {
		s, err := store.FromConfig(ctx, journalConf)
		if err != nil {
			return errors.Wrap(err, "creating journal store")
		}
		j = journal.New(s)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrap(err, "opening source file")
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return errors.Wrap(err, "opening destination file")
	}
	defer dst.Close()

	opts := []blocksync.Option{
		blocksync.BlockSize(blockSize),
		blocksync.Interval(interval),
		blocksync.Output(c.stdout),
	}
	if j != nil {
		opts = append(opts, blocksync.Journal(j))
	}

	return withLock(dstPath, func() error {
		_, err := blocksync.Sync(ctx, src, dst, opts...)

		// A partial run is journaled too, so that it can be undone.
		if j != nil && (err == nil || j.Len() > 0) {
			ref, cerr := j.Commit(ctx)
			if cerr != nil {
				if err == nil {
					err = errors.Wrap(cerr, "committing journal")
				} else {
					c.log.Printf("ERROR committing journal: %s", cerr)
				}
			} else {
				c.log.Printf("journal %s (%d blocks, %d new blobs)", ref, j.Len(), j.Added())
			}
		}
		if err != nil {
			return err
		}

		return errors.Wrap(dst.Sync(), "flushing destination")
	})
}

func (c maincmd) verify(ctx context.Context, interval time.Duration, args []string) error {
	srcPath, dstPath, blockSize, err := parseSyncArgs(args)
	if err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrap(err, "opening source file")
	}
	defer src.Close()

	dst, err := os.Open(dstPath)
	if err != nil {
		return errors.Wrap(err, "opening destination file")
	}
	defer dst.Close()

	stats, err := blocksync.Sync(
		ctx, src, dst,
		blocksync.DryRun(),
		blocksync.BlockSize(blockSize),
		blocksync.Interval(interval),
		blocksync.Output(c.stdout),
	)
	if err != nil {
		return err
	}
	if stats.Bad > 0 {
		return errors.Errorf("%d of %d blocks differ", stats.Bad, stats.Total)
	}
	return nil
}
