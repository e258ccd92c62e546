package blocksync

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the I/O step at which a sync failed.
type Kind int

const (
	// KindSize means the length of a stream could not be determined.
	KindSize Kind = iota + 1

	// KindSeek means a stream could not be positioned.
	KindSeek

	// KindResize means the destination could not be grown to the source's length.
	KindResize

	// KindRead means a read failed outright.
	KindRead

	// KindTruncatedRead means a read returned fewer bytes than the stream's measured length promised.
	// The wrapped error satisfies errors.Is(err, ErrTruncatedRead).
	KindTruncatedRead

	// KindWrite means a patched block could not be written.
	// The destination block at Offset may be partially updated.
	KindWrite

	// KindJournal means the undo journal rejected a block,
	// in which case the block was not patched.
	KindJournal
)

func (k Kind) String() string {
	switch k {
	case KindSize:
		return "measuring"
	case KindSeek:
		return "seeking"
	case KindResize:
		return "resizing"
	case KindRead:
		return "reading"
	case KindTruncatedRead:
		return "short read of"
	case KindWrite:
		return "writing"
	case KindJournal:
		return "journaling"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Side names the stream an Error concerns.
type Side string

const (
	Source      Side = "source"
	Destination Side = "destination"
)

// ErrTruncatedRead is wrapped by errors of kind KindTruncatedRead.
var ErrTruncatedRead = errors.New("truncated read")

// Error is the error type returned by Sync for failures on either stream.
type Error struct {
	Kind   Kind
	Side   Side
	Offset int64 // start of the block being processed, or -1 if none
	Err    error
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Side, e.Err)
	}
	return fmt.Sprintf("%s %s at offset %d: %s", e.Kind, e.Side, e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind tells whether err is, or wraps, an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(k Kind, side Side, offset int64, err error) *Error {
	return &Error{Kind: k, Side: side, Offset: offset, Err: err}
}
