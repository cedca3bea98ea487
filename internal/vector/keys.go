package vector

import (
	"crypto/sha1"
	"encoding/binary"
)

// IntKey maps a chunk ID to the fixed-width integer key the HNSW graph
// requires: the first 8 bytes of SHA-1(chunk_id), big-endian, as a signed
// 64-bit integer. The mapping is deterministic and stable across process
// restarts; it is not reversible except through the stored mapping table.
//
// Collisions are accepted risk: they are never detected or resolved, a
// colliding chunk silently overwrites the previous occupant of the key.
func IntKey(chunkID string) int64 {
	sum := sha1.Sum([]byte(chunkID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
