package blocksync

import (
	"bytes"
	"testing"
	"time"
)

func TestSnapshotString(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		want string
	}{
		{
			name: "start",
			snap: Snapshot{Stats: Stats{Total: 10, BlockSize: 4096}},
			want: "[00:00:00 |   0.0%] 0 ok, 0 bad, 10 remaining (0.00 MiB/s)",
		},
		{
			name: "midway",
			snap: Snapshot{
				Stats:   Stats{OK: 200, Bad: 56, Total: 1024, BlockSize: 1 << 20},
				Elapsed: 90*time.Second + 500*time.Millisecond,
			},
			want: "[00:01:30 |  25.0%] 200 ok, 56 bad, 768 remaining (2.83 MiB/s)",
		},
		{
			name: "long",
			snap: Snapshot{
				Stats:   Stats{OK: 3, Total: 3, BlockSize: 1024},
				Elapsed: 100*time.Hour + 2*time.Minute + 3*time.Second,
			},
			want: "[100:02:03 | 100.0%] 3 ok, 0 bad, 0 remaining (0.00 MiB/s)",
		},
		{
			name: "empty source",
			snap: Snapshot{Stats: Stats{BlockSize: 4096}},
			want: "[00:00:00 | 100.0%] 0 ok, 0 bad, 0 remaining (0.00 MiB/s)",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.snap.String(); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestMiBpsZeroElapsed(t *testing.T) {
	snap := Snapshot{Stats: Stats{OK: 5, Total: 5, BlockSize: 4096}}
	if got := snap.MiBps(); got != 0 {
		t.Errorf("got %f MiB/s at zero elapsed time, want 0", got)
	}

	snap.Elapsed = 500 * time.Millisecond
	want := float64(5*4096) / (1 << 20) / 0.5
	if got := snap.MiBps(); got != want {
		t.Errorf("got %f MiB/s, want %f", got, want)
	}
}

func TestPrinter(t *testing.T) {
	buf := new(bytes.Buffer)
	p := Printer(buf)
	p(Snapshot{Stats: Stats{Total: 1, OK: 1, BlockSize: 1}})
	p(Snapshot{Stats: Stats{Total: 1, Bad: 1, BlockSize: 1}})

	const want = "[00:00:00 | 100.0%] 1 ok, 0 bad, 0 remaining (0.00 MiB/s)\n" +
		"[00:00:00 | 100.0%] 0 ok, 1 bad, 0 remaining (0.00 MiB/s)\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
