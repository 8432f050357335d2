// Package index implements the binary index file format (spec §3 "Index
// file"): a DIRC v2 header, a run of fixed-shape entries sorted by
// (path, stage), and a trailing SHA-1 checksum of everything before it.
// Extensions (cache tree, resolve-undo, split index, ...) are out of scope.
package index

import (
	"errors"
	"time"

	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
)

// Version is the only index file version this package reads and writes.
const Version = 2

// Stage distinguishes the merged entry (0) from the three sides of an
// unresolved conflict (spec §3 "IndexEntry").
type Stage uint8

const (
	// Merged is the ordinary, fully-resolved stage.
	Merged Stage = 0
	// Ancestor is the common-ancestor side of a conflict.
	Ancestor Stage = 1
	// Ours is the current branch's side of a conflict.
	Ours Stage = 2
	// Theirs is the other branch's side of a conflict.
	Theirs Stage = 3
)

var (
	// ErrUnsupportedVersion is returned by Decode for any version but 2.
	ErrUnsupportedVersion = errors.New("unsupported index version")
	// ErrMalformedSignature is returned when the leading 4 bytes aren't "DIRC".
	ErrMalformedSignature = errors.New("malformed index signature")
	// ErrInvalidChecksum is returned when the trailing SHA-1 doesn't match.
	ErrInvalidChecksum = errors.New("invalid index checksum")
	// ErrEntryNotFound is returned by Index.Entry for an unknown (path, stage).
	ErrEntryNotFound = errors.New("entry not found")
)

// nameMask clamps a stored name length to 12 bits; names longer than this
// are still read/written in full, just not round-tripped through the flag.
const nameMask = 0xfff

// Entry is one staged file (spec §3 "IndexEntry").
type Entry struct {
	CreatedAt  time.Time
	ModifiedAt time.Time
	Dev        uint32
	Inode      uint32
	Mode       filemode.FileMode
	UID        uint32
	GID        uint32
	Size       uint32
	Hash       plumbing.Hash
	Stage      Stage
	Name       string
}

// Index is the in-memory form of the index file.
type Index struct {
	Version uint32
	Entries []*Entry
}

// NewIndex returns an empty, version-2 index.
func NewIndex() *Index {
	return &Index{Version: Version}
}

// Entry returns the entry at (name, stage), or ErrEntryNotFound.
func (idx *Index) Entry(name string, stage Stage) (*Entry, error) {
	for _, e := range idx.Entries {
		if e.Name == name && e.Stage == stage {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// key is the (path, stage) sort key spec §3 orders entries by.
func key(e *Entry) (string, Stage) { return e.Name, e.Stage }

// Less orders a before b by (path, stage), matching the on-disk ordering
// requirement.
func Less(a, b *Entry) bool {
	an, as := key(a)
	bn, bs := key(b)
	if an != bn {
		return an < bn
	}
	return as < bs
}
