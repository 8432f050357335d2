// Package plumbing implements the low-level types shared by every other
// package in the module: object identifiers, object kinds, file modes and
// reference values.
package plumbing

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// HashSize is the length in bytes of a raw OID.
const HashSize = 20

// HexSize is the length in characters of the hexadecimal OID encoding.
const HexSize = HashSize * 2

// MinPrefixSize is the shortest OID prefix accepted on input (spec C2 /
// "callers accept any unique prefix >= 4").
const MinPrefixSize = 4

// ErrInvalidHash is returned when a string cannot be parsed as a Hash.
var ErrInvalidHash = errors.New("invalid hash")

// Hash is the content identifier of an Object: the lowercase hex SHA-1 of
// its canonical serialised form.
type Hash [HashSize]byte

// ZeroHash is the identity value of Hash.
var ZeroHash Hash

// FromHex parses a 40 character lowercase hex string into a Hash.
func FromHex(s string) (Hash, error) {
	var h Hash
	if len(s) != HexSize {
		return h, ErrInvalidHash
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, ErrInvalidHash
	}

	copy(h[:], b)
	return h, nil
}

// NewHash parses s, returning ZeroHash if it is not a valid hash. Prefer
// FromHex when the error matters.
func NewHash(s string) Hash {
	h, _ := FromHex(s)
	return h
}

// FromBytes copies the first HashSize bytes of b into a Hash.
func FromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Compare returns an integer comparing h to the raw bytes of other.
func (h Hash) Compare(other []byte) int {
	return strings.Compare(string(h[:]), string(other))
}

// HasPrefix reports whether the lowercase hex string of h starts with
// prefix. Useful for OID-prefix resolution (spec C8).
func (h Hash) HasPrefix(prefix string) bool {
	return strings.HasPrefix(h.String(), prefix)
}

// IsValidHexPrefix reports whether s is a syntactically plausible hash
// prefix: 4 to 40 lowercase hex characters.
func IsValidHexPrefix(s string) bool {
	if len(s) < MinPrefixSize || len(s) > HexSize {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// IsHash reports whether s is a full-length, syntactically valid hash.
func IsHash(s string) bool {
	if len(s) != HexSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// HashSlice attaches sort.Interface to []Hash, ordering lexicographically.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return p[i].Compare(p[j][:]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// SortHashes sorts hashes in increasing lexicographic order.
func SortHashes(hashes []Hash) {
	sort.Sort(HashSlice(hashes))
}
