package main

import (
	"context"
	"net"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/bobg/blocksync/gc"
	"github.com/bobg/blocksync/journal"
	"github.com/bobg/blocksync/store"
	"github.com/bobg/blocksync/store/rpc"
)

func (c maincmd) restore(ctx context.Context, journalConf, refstr string, args []string) error {
	if journalConf == "" || refstr == "" {
		return errors.New("must supply -journal and -ref")
	}
	if len(args) != 1 {
		return errors.New("usage: restore -journal CONF -ref REF DST")
	}
	dstPath := args[0]

	ref, err := store.RefFromHex(refstr)
	if err != nil {
		return errors.Wrapf(err, "decoding ref %s", refstr)
	}

	s, err := store.FromConfig(ctx, journalConf)
	if err != nil {
		return errors.Wrap(err, "creating journal store")
	}

	dst, err := os.OpenFile(dstPath, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "opening destination file")
	}
	defer dst.Close()

	return withLock(dstPath, func() error {
		n, err := journal.Restore(ctx, s, ref, dst)
		c.log.Printf("restored %d blocks", n)
		if err != nil {
			return errors.Wrapf(err, "restoring journal %s", ref)
		}
		return errors.Wrap(dst.Sync(), "flushing destination")
	})
}

func (c maincmd) journalSync(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: journal-sync CONF CONF...")
	}

	var stores []store.Store
	for _, arg := range args {
		s, err := store.FromConfig(ctx, arg)
		if err != nil {
			return errors.Wrapf(err, "reading %s", arg)
		}
		stores = append(stores, s)
	}

	copied, err := store.Sync(ctx, stores)
	c.log.Printf("copied %d blobs", copied)
	return err
}

func (c maincmd) journalPrune(ctx context.Context, journalConf string, args []string) error {
	if journalConf == "" || len(args) == 0 {
		return errors.New("usage: journal-prune -journal CONF REF...")
	}

	s, err := store.FromConfig(ctx, journalConf)
	if err != nil {
		return errors.Wrap(err, "creating journal store")
	}
	gs, ok := s.(gc.Store)
	if !ok {
		return errors.Wrapf(store.ErrNotDeleter, "%T", s)
	}

	k := gc.NewMemKeep()
	for _, arg := range args {
		ref, err := store.RefFromHex(arg)
		if err != nil {
			return errors.Wrapf(err, "decoding ref %s", arg)
		}
		err = gc.Protect(ctx, s, k, ref, journal.Refs)
		if err != nil {
			return errors.Wrapf(err, "protecting journal %s", ref)
		}
	}

	deleted, err := gc.Run(ctx, gs, k)
	c.log.Printf("deleted %d blobs", deleted)
	return err
}

func (c maincmd) journalServe(ctx context.Context, journalConf, addr string, _ []string) error {
	if journalConf == "" {
		return errors.New("must supply -journal")
	}

	s, err := store.FromConfig(ctx, journalConf)
	if err != nil {
		return errors.Wrap(err, "creating journal store")
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	c.log.Printf("serving journal store on %s", l.Addr())
	return c.serveJournal(ctx, s, l)
}

// Serves s on l until ctx is canceled.
func (c maincmd) serveJournal(ctx context.Context, s store.Store, l net.Listener) error {
	gs := grpc.NewServer()
	rpc.NewServer(s).Register(gs)

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	err := gs.Serve(l)
	return errors.Wrap(err, "serving")
}
