package blocksync

import (
	"fmt"
	"io"
	"time"
)

// Stats counts the blocks a sync has processed.
type Stats struct {
	OK        int64 // blocks that already matched
	Bad       int64 // blocks that differed and were rewritten (or, in a dry run, would have been)
	Total     int64 // blocks in the source
	BlockSize int64
}

// Done is the number of blocks processed so far.
func (s Stats) Done() int64 {
	return s.OK + s.Bad
}

// Remaining is the number of blocks not yet processed.
func (s Stats) Remaining() int64 {
	return s.Total - s.Done()
}

// Snapshot is the input to one progress line.
type Snapshot struct {
	Stats
	Elapsed time.Duration
}

// Percent is the share of blocks processed, from 0 to 100.
// An empty source counts as complete.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return 100 * float64(s.Done()) / float64(s.Total)
}

// MiBps is the throughput in MiB per second of elapsed time.
// It is 0 until some time has elapsed.
func (s Snapshot) MiBps() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Done()*s.BlockSize) / (1 << 20) / secs
}

// String renders s as a progress line, e.g.
//
//   [00:01:30 |  42.7%] 1024 ok, 98 bad, 1506 remaining (12.34 MiB/s)
func (s Snapshot) String() string {
	secs := int64(s.Elapsed / time.Second)
	return fmt.Sprintf(
		"[%02d:%02d:%02d | %5.1f%%] %d ok, %d bad, %d remaining (%.2f MiB/s)",
		secs/3600, secs/60%60, secs%60, s.Percent(), s.OK, s.Bad, s.Remaining(), s.MiBps(),
	)
}

// Printer produces a reporter that writes each snapshot to w as one line.
func Printer(w io.Writer) func(Snapshot) {
	return func(snap Snapshot) {
		fmt.Fprintln(w, snap)
	}
}
