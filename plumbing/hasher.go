package plumbing

import (
	"hash"
	"strconv"
	"sync"

	"github.com/pjbgf/sha1cd"
)

// Hasher computes OIDs by writing the canonical "<kind> <len>\0" header
// followed by the payload into a collision-detecting SHA-1 (spec §3, I1).
// It is safe for concurrent use; each Compute call is independent.
type Hasher struct {
	mu sync.Mutex
	h  hash.Hash
}

// NewHasher returns a ready-to-use Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha1cd.New()}
}

// Compute hashes the header for (kind, len(payload)) followed by payload,
// returning the resulting OID. The Hasher may be reused afterwards.
func (h *Hasher) Compute(kind ObjectType, payload []byte) Hash {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.h.Reset()
	writeHeader(h.h, kind, int64(len(payload)))
	h.h.Write(payload)

	var sum Hash
	h.h.Sum(sum[:0])
	return sum
}

func writeHeader(h hash.Hash, kind ObjectType, size int64) {
	h.Write(kind.Bytes())
	h.Write(spaceByte)
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write(nulByte)
}

var (
	spaceByte = []byte(" ")
	nulByte   = []byte{0}
)

// HashObject computes the OID of payload under kind using a fresh Hasher;
// convenient for one-off callers (tests, CLI glue).
func HashObject(kind ObjectType, payload []byte) Hash {
	return NewHasher().Compute(kind, payload)
}
