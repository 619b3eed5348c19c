package graph

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"snarl_anchors/pkg/fileio"
)

const (
	magicBytes = "SNARLPG\x00"
	version    = uint32(1)
	maxNodes   = 500_000_000
	maxEdges   = 2_000_000_000
	maxName    = 1 << 16
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumNodes  uint32
	NumEdges  uint32
	NumPaths  uint32
	NumSteps  uint32
	NumSnarls uint32
	SeqBytes  uint64 // 0 when sequences were not stored
}

// WriteBinary serializes a Graph to a packed binary file.
// Uses unsafe.Slice for fast zero-copy I/O.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	w := fileio.NewCRCWriter(f)

	hdr := fileHeader{
		Version:   version,
		NumNodes:  g.NumNodes,
		NumEdges:  g.NumEdges,
		NumPaths:  uint32(len(g.PathNames)),
		NumSteps:  uint32(len(g.PathSteps)),
		NumSnarls: uint32(len(g.Snarls)),
		SeqBytes:  uint64(len(g.Seq)),
	}
	if len(g.SeqStart) == 0 {
		hdr.SeqBytes = 0
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Node data.
	if err := writeSlice(w, g.NodeID); err != nil {
		return fmt.Errorf("write NodeID: %w", err)
	}
	if err := writeSlice(w, g.Length); err != nil {
		return fmt.Errorf("write Length: %w", err)
	}
	if hdr.SeqBytes > 0 {
		if err := writeSlice(w, g.SeqStart); err != nil {
			return fmt.Errorf("write SeqStart: %w", err)
		}
		if err := writeSlice(w, g.Seq); err != nil {
			return fmt.Errorf("write Seq: %w", err)
		}
	}

	// Edges.
	if err := writeSlice(w, g.FirstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeSlice(w, g.Head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}

	// Paths.
	if err := writeSlice(w, g.PathFirst); err != nil {
		return fmt.Errorf("write PathFirst: %w", err)
	}
	if err := writeSlice(w, g.PathSteps); err != nil {
		return fmt.Errorf("write PathSteps: %w", err)
	}
	for _, name := range g.PathNames {
		if err := writeString(w, name); err != nil {
			return fmt.Errorf("write path name: %w", err)
		}
	}

	// Snarls.
	if err := writeSlice(w, g.Snarls); err != nil {
		return fmt.Errorf("write Snarls: %w", err)
	}

	// Write CRC32 trailer.
	checksum := w.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a Graph from a packed binary file.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := fileio.NewCRCReader(f)

	// Read and validate header.
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges || hdr.NumSteps > maxEdges {
		return nil, fmt.Errorf("edge or step count exceeds limit %d", maxEdges)
	}

	g := &Graph{NumNodes: hdr.NumNodes, NumEdges: hdr.NumEdges}

	// Node data.
	if g.NodeID, err = readSlice[int64](r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read NodeID: %w", err)
	}
	if g.Length, err = readSlice[uint32](r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read Length: %w", err)
	}
	if hdr.SeqBytes > 0 {
		if hdr.SeqBytes > math.MaxInt32*4 {
			return nil, fmt.Errorf("SeqBytes %d exceeds limit", hdr.SeqBytes)
		}
		if g.SeqStart, err = readSlice[uint64](r, int(hdr.NumNodes)+1); err != nil {
			return nil, fmt.Errorf("read SeqStart: %w", err)
		}
		if g.Seq, err = readSlice[byte](r, int(hdr.SeqBytes)); err != nil {
			return nil, fmt.Errorf("read Seq: %w", err)
		}
	}

	// Edges.
	if g.FirstOut, err = readSlice[uint32](r, 2*int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.Head, err = readSlice[Handle](r, int(hdr.NumEdges)); err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}

	// Paths.
	if g.PathFirst, err = readSlice[uint32](r, int(hdr.NumPaths)+1); err != nil {
		return nil, fmt.Errorf("read PathFirst: %w", err)
	}
	if g.PathSteps, err = readSlice[Handle](r, int(hdr.NumSteps)); err != nil {
		return nil, fmt.Errorf("read PathSteps: %w", err)
	}
	g.PathNames = make([]string, hdr.NumPaths)
	for i := range g.PathNames {
		if g.PathNames[i], err = readString(r); err != nil {
			return nil, fmt.Errorf("read path name: %w", err)
		}
	}

	// Snarls.
	if g.Snarls, err = readSlice[Snarl](r, int(hdr.NumSnarls)); err != nil {
		return nil, fmt.Errorf("read Snarls: %w", err)
	}

	// Read and validate CRC32.
	expectedCRC := r.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	// Validate CSR invariants.
	if err := validateCSR(g.FirstOut, g.Head, 2*hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("edge CSR invalid: %w", err)
	}
	if err := validatePaths(g, hdr.NumSteps); err != nil {
		return nil, fmt.Errorf("paths invalid: %w", err)
	}
	for i, s := range g.Snarls {
		if s.Start.Index() >= hdr.NumNodes || s.End.Index() >= hdr.NumNodes || s.Parent >= int32(hdr.NumSnarls) {
			return nil, fmt.Errorf("snarl %d out of range", i)
		}
	}

	g.finish()
	return g, nil
}

// validateCSR checks CSR invariants over numHandles rows.
func validateCSR(firstOut []uint32, head []Handle, numHandles uint32) error {
	if uint32(len(firstOut)) != numHandles+1 {
		return fmt.Errorf("FirstOut length %d != handles+1 %d", len(firstOut), numHandles+1)
	}
	numEdges := firstOut[numHandles]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[last] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numHandles; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if uint32(h) >= numHandles {
			return fmt.Errorf("Head[%d]=%d >= handles=%d", i, h, numHandles)
		}
	}
	return nil
}

func validatePaths(g *Graph, numSteps uint32) error {
	for i := 1; i < len(g.PathFirst); i++ {
		if g.PathFirst[i] < g.PathFirst[i-1] {
			return fmt.Errorf("PathFirst not monotonic at %d", i)
		}
	}
	if g.PathFirst[len(g.PathFirst)-1] != numSteps {
		return fmt.Errorf("PathFirst ends at %d, want %d", g.PathFirst[len(g.PathFirst)-1], numSteps)
	}
	for i, h := range g.PathSteps {
		if h.Index() >= g.NumNodes {
			return fmt.Errorf("PathSteps[%d] out of range", i)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeSlice[T any](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
	_, err := w.Write(b)
	return err
}

func readSlice[T any](r io.Reader, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]T, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*int(unsafe.Sizeof(s[0])))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxName {
		return "", fmt.Errorf("name length %d exceeds limit %d", n, maxName)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
