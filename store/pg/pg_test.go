package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/bobg/blocksync/testutil"
)

func TestStore(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.ReadWrite(ctx, t, s, testutil.Data(t))
	})
}

func TestDelete(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.Delete(ctx, t, s)
	})
}

const connVar = "BLOCKSYNC_PG_TESTING_CONN"

func withStore(t *testing.T, f func(context.Context, *Store)) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, s)
}
