package fileio

import (
	"hash"
	"hash/crc32"
	"io"
)

// CRCWriter passes writes through to an underlying writer and keeps the
// IEEE CRC32 of everything written.
type CRCWriter struct {
	w    io.Writer
	hash hash.Hash32
}

// NewCRCWriter wraps w.
func NewCRCWriter(w io.Writer) *CRCWriter {
	return &CRCWriter{w: w, hash: crc32.NewIEEE()}
}

func (cw *CRCWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.hash.Write(p[:n])
	return n, err
}

// Sum32 returns the checksum of the bytes written so far.
func (cw *CRCWriter) Sum32() uint32 { return cw.hash.Sum32() }

// CRCReader keeps the IEEE CRC32 of everything read through it.
type CRCReader struct {
	r    io.Reader
	hash hash.Hash32
}

// NewCRCReader wraps r.
func NewCRCReader(r io.Reader) *CRCReader {
	return &CRCReader{r: r, hash: crc32.NewIEEE()}
}

func (cr *CRCReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Sum32 returns the checksum of the bytes read so far.
func (cr *CRCReader) Sum32() uint32 { return cr.hash.Sum32() }
