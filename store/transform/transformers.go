package transform

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"context"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"
)

// LZW is a Transformer implementing lzw compression.
type LZW struct {
	Order lzw.Order
}

// In implements Transformer.In.
func (l LZW) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := lzw.NewWriter(buf, l.Order, 8)
	if _, err := w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "lzw-compressing")
	}
	err := w.Close()
	return buf.Bytes(), errors.Wrap(err, "closing lzw writer")
}

// Out implements Transformer.Out.
func (l LZW) Out(_ context.Context, inp []byte) ([]byte, error) {
	r := bytes.NewReader(inp)
	rr := lzw.NewReader(r, l.Order, 8)
	defer rr.Close()
	return io.ReadAll(rr)
}

// Flate is a Transformer implementing RFC1951 DEFLATE compression.
type Flate struct {
	Level int
}

// In implements Transformer.In.
func (f Flate) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	level := f.Level
	if level < -2 || level > 9 {
		level = -1
	}
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "flate-compressing")
	}
	err = w.Close()
	return buf.Bytes(), errors.Wrap(err, "closing flate writer")
}

// Out implements Transformer.Out.
func (f Flate) Out(_ context.Context, inp []byte) ([]byte, error) {
	r := bytes.NewReader(inp)
	rr := flate.NewReader(r)
	defer rr.Close()
	return io.ReadAll(rr)
}

// Bzip2 is a Transformer implementing bzip2 compression.
// It is slower than Flate but usually smaller.
type Bzip2 struct {
	Level int // 1 through 9; anything else means the default
}

// In implements Transformer.In.
func (z Bzip2) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	level := z.Level
	if level < bzip2.BestSpeed || level > bzip2.BestCompression {
		level = bzip2.DefaultCompression
	}
	w, err := bzip2.NewWriter(buf, &bzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, errors.Wrap(err, "creating bzip2 writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "bzip2-compressing")
	}
	err = w.Close()
	return buf.Bytes(), errors.Wrap(err, "closing bzip2 writer")
}

// Out implements Transformer.Out.
func (z Bzip2) Out(_ context.Context, inp []byte) ([]byte, error) {
	rr, err := bzip2.NewReader(bytes.NewReader(inp), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating bzip2 reader")
	}
	defer rr.Close()
	return io.ReadAll(rr)
}
