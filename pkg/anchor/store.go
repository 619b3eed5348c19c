package anchor

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"snarl_anchors/pkg/fileio"
)

const (
	magicBytes = "SNARLDIC"
	version    = uint32(1)
	maxPayload = 1 << 34 // compressed bytes

	// maxWindow bounds the zstd window, and with it the decoder memory.
	maxWindow = 1 << 29
)

// ErrGraphMismatch is returned when a dictionary is loaded against a graph
// other than the one it was built from.
var ErrGraphMismatch = errors.New("dictionary was built from a different graph")

type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	Fingerprint [32]byte
	PayloadLen  uint64
}

// WriteDictionary writes d to w: a header with the graph fingerprint, a
// zstd compressed gob payload and a CRC32 trailer over both.
func WriteDictionary(w io.Writer, d *Dictionary, fingerprint [32]byte) error {
	var payload bytes.Buffer
	zw, err := zstd.NewWriter(&payload)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	d.mu.RLock()
	err = gob.NewEncoder(zw).Encode(d.Anchors)
	d.mu.RUnlock()
	if err != nil {
		zw.Close()
		return fmt.Errorf("encode anchors: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}

	cw := fileio.NewCRCWriter(w)
	hdr := fileHeader{Version: version, Fingerprint: fingerprint, PayloadLen: uint64(payload.Len())}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := cw.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, cw.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

// ReadDictionary reads a dictionary written by WriteDictionary and checks
// that it belongs to the graph with the given fingerprint. The payload is
// decoded as it streams in, so the header length never sizes an
// allocation. Nothing is returned unless the CRC32 trailer matches.
func ReadDictionary(r io.Reader, fingerprint [32]byte) (*Dictionary, error) {
	cr := fileio.NewCRCReader(r)

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic[:])
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.Fingerprint != fingerprint {
		return nil, ErrGraphMismatch
	}
	if hdr.PayloadLen > maxPayload {
		return nil, fmt.Errorf("payload too large: %d", hdr.PayloadLen)
	}

	payload := &io.LimitedReader{R: cr, N: int64(hdr.PayloadLen)}
	zr, err := zstd.NewReader(payload, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxWindow(maxWindow))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()
	d := NewDictionary()
	if err := gob.NewDecoder(zr).Decode(&d.Anchors); err != nil {
		return nil, fmt.Errorf("decode anchors: %w", err)
	}
	// The CRC covers every payload byte, including any the decoder left.
	if _, err := io.Copy(io.Discard, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if payload.N != 0 {
		return nil, fmt.Errorf("read payload: %w", io.ErrUnexpectedEOF)
	}

	var stored uint32
	if err := binary.Read(r, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if got := cr.Sum32(); got != stored {
		return nil, fmt.Errorf("CRC32 mismatch: file has %08x, computed %08x", stored, got)
	}
	if d.Anchors == nil {
		d.Anchors = make(map[int64][]*Anchor)
	}
	return d, nil
}

// WriteDictionaryFile writes d to path through a temporary file and an
// atomic rename.
func WriteDictionaryFile(path string, d *Dictionary, fingerprint [32]byte) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()
	if err := WriteDictionary(f, d, fingerprint); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadDictionaryFile is ReadDictionary on a file path.
func ReadDictionaryFile(path string, fingerprint [32]byte) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ReadDictionary(f, fingerprint)
}
