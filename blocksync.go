package blocksync

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultBlockSize is the block size Sync uses absent a BlockSize option.
	DefaultBlockSize = 4096

	// DefaultInterval is the time between progress snapshots absent an Interval option.
	DefaultInterval = 30 * time.Second
)

// Dest is the destination of a sync.
// It must allow reading, writing, seeking, and growing.
// An *os.File opened read-write satisfies it.
type Dest interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// Recorder is told about destination blocks before Sync overwrites them.
// The journal package's Journal is a Recorder.
type Recorder interface {
	// Begin is called once, after both sizes are known
	// and before the destination is grown.
	Begin(ctx context.Context, blockSize int, srcSize, dstSize int64) error

	// Record is called with the destination's content at offset
	// before it is replaced.
	// The old slice is reused after Record returns.
	Record(ctx context.Context, offset int64, old []byte) error
}

// Option configures a call to Sync.
type Option func(*session)

// BlockSize sets the number of bytes compared and written as a unit.
func BlockSize(n int) Option {
	return func(s *session) {
		s.blockSize = n
	}
}

// Interval sets the time between progress snapshots.
func Interval(d time.Duration) Option {
	return func(s *session) {
		s.interval = d
	}
}

// Reporter sets the function that receives progress snapshots.
// The default prints them to standard output.
func Reporter(f func(Snapshot)) Option {
	return func(s *session) {
		s.report = f
	}
}

// Output makes the default reporter print snapshots to w instead of standard output.
func Output(w io.Writer) Option {
	return func(s *session) {
		s.report = Printer(w)
	}
}

// Journal sets a Recorder to be told about every block before it is overwritten.
func Journal(r Recorder) Option {
	return func(s *session) {
		s.rec = r
	}
}

// DryRun makes Sync compare only.
// The destination is neither grown nor written,
// so it may be opened read-only.
// Source blocks lying wholly or partly beyond the destination's end count as bad.
func DryRun() Option {
	return func(s *session) {
		s.dryRun = true
	}
}

// Clock replaces time.Now as the source of elapsed time.
func Clock(now func() time.Time) Option {
	return func(s *session) {
		s.now = now
	}
}

type session struct {
	blockSize int
	interval  time.Duration
	report    func(Snapshot)
	rec       Recorder
	dryRun    bool
	now       func() time.Time

	src io.ReadSeeker
	dst Dest

	srcSize, dstSize int64
	stats            Stats
}

// Sync makes the content of dst equal to the content of src.
//
// The destination is first grown to the length of the source if it is shorter.
// Then both are read one block at a time from the beginning,
// and each destination block that differs from its source block is overwritten.
// When that finishes,
// dst[0:len(src)] equals src,
// and len(dst) is the greater of the original len(dst) and len(src).
//
// A progress snapshot goes to the reporter at each interval
// and once more at the end.
//
// Any I/O failure stops the sync immediately and is returned as an *Error,
// along with the Stats accumulated up to that point.
// The context is used only by the Recorder, if any;
// the block loop itself runs to completion or to the first error.
func Sync(ctx context.Context, src io.ReadSeeker, dst Dest, opts ...Option) (Stats, error) {
	s := &session{
		blockSize: DefaultBlockSize,
		interval:  DefaultInterval,
		report:    Printer(os.Stdout),
		now:       time.Now,
		src:       src,
		dst:       dst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.blockSize <= 0 {
		return Stats{}, errors.Errorf("invalid block size %d", s.blockSize)
	}
	if s.interval <= 0 {
		return Stats{}, errors.Errorf("invalid progress interval %s", s.interval)
	}

	err := s.prepare(ctx)
	if err != nil {
		return s.stats, err
	}
	err = s.run(ctx)
	return s.stats, err
}

// Measures both streams, grows the destination, and rewinds.
func (s *session) prepare(ctx context.Context) error {
	var err error

	s.srcSize, err = s.src.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(KindSize, Source, -1, err)
	}
	s.dstSize, err = s.dst.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(KindSize, Destination, -1, err)
	}

	bs := int64(s.blockSize)
	s.stats = Stats{
		Total:     (s.srcSize + bs - 1) / bs,
		BlockSize: bs,
	}

	if s.rec != nil && !s.dryRun {
		err = s.rec.Begin(ctx, s.blockSize, s.srcSize, s.dstSize)
		if err != nil {
			return newError(KindJournal, Destination, -1, err)
		}
	}

	if s.srcSize > s.dstSize && !s.dryRun {
		err = s.dst.Truncate(s.srcSize)
		if err != nil {
			return newError(KindResize, Destination, -1, err)
		}
	}

	if _, err = s.src.Seek(0, io.SeekStart); err != nil {
		return newError(KindSeek, Source, 0, err)
	}
	if _, err = s.dst.Seek(0, io.SeekStart); err != nil {
		return newError(KindSeek, Destination, 0, err)
	}
	return nil
}

func (s *session) run(ctx context.Context) error {
	var (
		srcBuf = make([]byte, s.blockSize)
		dstBuf = make([]byte, s.blockSize)
		start  = s.now()
		next   = s.interval
		pos    int64
	)

	for pos < s.srcSize {
		n := int64(s.blockSize)
		if remaining := s.srcSize - pos; remaining < n {
			n = remaining
		}
		a, b := srcBuf[:n], dstBuf[:n]

		if err := readBlock(s.src, a, Source, pos); err != nil {
			return err
		}

		same, err := s.compare(a, b, pos)
		if err != nil {
			return err
		}
		if same {
			s.stats.OK++
		} else {
			if !s.dryRun {
				if err = s.patch(ctx, a, b, pos); err != nil {
					return err
				}
			}
			s.stats.Bad++
		}

		pos += n

		if elapsed := s.now().Sub(start); elapsed >= next {
			s.report(Snapshot{Stats: s.stats, Elapsed: elapsed})
			next += s.interval
		}
	}

	s.report(Snapshot{Stats: s.stats, Elapsed: s.now().Sub(start)})
	return nil
}

// Reads the destination block at pos into b and compares it with a.
// In a dry run the destination was not grown,
// so only the part of the block below dstSize is read.
func (s *session) compare(a, b []byte, pos int64) (bool, error) {
	if s.dryRun {
		if pos >= s.dstSize {
			return false, nil
		}
		if avail := s.dstSize - pos; avail < int64(len(b)) {
			return false, readBlock(s.dst, b[:avail], Destination, pos)
		}
	}
	if err := readBlock(s.dst, b, Destination, pos); err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

// Overwrites the block just read from the destination,
// whose old content is in old, with the source content in a.
func (s *session) patch(ctx context.Context, a, old []byte, pos int64) error {
	if s.rec != nil {
		if err := s.rec.Record(ctx, pos, old); err != nil {
			return newError(KindJournal, Destination, pos, err)
		}
	}

	_, err := s.dst.Seek(-int64(len(a)), io.SeekCurrent)
	if err != nil {
		return newError(KindSeek, Destination, pos, err)
	}
	n, err := s.dst.Write(a)
	if err == nil && n < len(a) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return newError(KindWrite, Destination, pos, err)
	}
	return nil
}

func readBlock(r io.Reader, buf []byte, side Side, pos int64) error {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(KindTruncatedRead, side, pos, errors.Wrapf(ErrTruncatedRead, "got %d of %d bytes", n, len(buf)))
	}
	if err != nil {
		return newError(KindRead, side, pos, err)
	}
	return nil
}
