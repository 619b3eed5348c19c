package graph

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the length of a graph fingerprint in bytes.
const FingerprintSize = blake2b.Size256

// Fingerprint digests the node ids, node lengths and edges of the graph.
// Files derived from a graph record it so they can refuse to be used with
// another graph.
func (g *Graph) Fingerprint() [FingerprintSize]byte {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	var buf [8]byte
	for i, id := range g.NodeID {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:4], g.Length[i])
		h.Write(buf[:4])
	}
	for _, v := range g.FirstOut {
		binary.LittleEndian.PutUint32(buf[:4], v)
		h.Write(buf[:4])
	}
	for _, v := range g.Head {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
		h.Write(buf[:4])
	}
	var out [FingerprintSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
