// Package fileio opens plain, gzip and zstd compressed inputs behind a
// single reader so parsers do not care how a file was stored.
package fileio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path and transparently decompresses it. The compression is
// detected from the leading magic bytes, not the file extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	rc, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rc.closers = append([]func() error{f.Close}, rc.closers...)
	return rc, nil
}

// NewReader wraps r with the decompressor matching its magic bytes. Closing
// the result releases the decompressor but not r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return newReader(r)
}

func newReader(r io.Reader) (*readCloser, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &readCloser{Reader: gz, closers: []func() error{gz.Close}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }}}, nil
	default:
		return &readCloser{Reader: br}, nil
	}
}

// Create creates path for writing. A ".gz" suffix selects gzip output.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		return &writeCloser{Writer: gz, closers: []func() error{f.Close, gz.Close}}, nil
	}
	bw := bufio.NewWriterSize(f, 1<<16)
	return &writeCloser{Writer: bw, closers: []func() error{f.Close, bw.Flush}}, nil
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

func (wc *writeCloser) Close() error {
	var first error
	for i := len(wc.closers) - 1; i >= 0; i-- {
		if err := wc.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
