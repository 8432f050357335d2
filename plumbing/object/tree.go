package object

import (
	"bytes"
	"errors"
	"sort"
	"strconv"

	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
)

// ErrEntryNotFound is returned when a name has no matching TreeEntry.
var ErrEntryNotFound = errors.New("entry not found")

// TreeEntry is one name -> (mode, oid) mapping inside a Tree (spec §3).
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// sortKey is the entry's name with a trailing "/" for directory-typed
// entries, matching git's tree ordering rule: a directory named "foo" sorts
// as if comparing against "foo/", so "foo.c" < "foo" < "foo/bar" never
// collapses to an ambiguous ordering on round-trip.
func (e TreeEntry) sortKey() string {
	if e.Mode.IsDirectoryType() {
		return e.Name + "/"
	}
	return e.Name
}

// Tree is an ordered name -> (mode, child-OID) mapping (spec §3 "Tree").
type Tree struct {
	Hash    plumbing.Hash
	Entries []TreeEntry
}

// ID returns the tree's OID.
func (t *Tree) ID() plumbing.Hash { return t.Hash }

// Type always returns plumbing.TreeObject.
func (t *Tree) Type() plumbing.ObjectType { return plumbing.TreeObject }

// NewTree builds a Tree from entries, sorting them into canonical order.
func NewTree(entries []TreeEntry) *Tree {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].sortKey() < sorted[j].sortKey()
	})
	return &Tree{Entries: sorted}
}

// Entry looks up name among t's immediate entries.
func (t *Tree) Entry(name string) (TreeEntry, error) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, nil
		}
	}
	return TreeEntry{}, ErrEntryNotFound
}

// Bytes serialises t into its canonical payload: the concatenation of
// "<octal-mode> <name>\0<20-byte-raw-OID>" for each entry in sorted order
// (spec §3). Entries must already be sorted; NewTree and Decode guarantee
// this.
func (t *Tree) Bytes() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		buf.WriteString(strconv.FormatUint(uint64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}

// Decode parses a tree's canonical payload back into entries.
func (t *Tree) Decode(hash plumbing.Hash, kind plumbing.ObjectType, payload []byte) error {
	if kind != plumbing.TreeObject {
		return ErrUnsupportedObject
	}

	t.Hash = hash
	t.Entries = nil

	for len(payload) > 0 {
		sp := bytes.IndexByte(payload, ' ')
		if sp < 0 {
			return errors.New("malformed tree entry: missing mode separator")
		}
		mode, err := filemode.New(string(payload[:sp]))
		if err != nil {
			return err
		}
		payload = payload[sp+1:]

		nul := bytes.IndexByte(payload, 0)
		if nul < 0 {
			return errors.New("malformed tree entry: missing name terminator")
		}
		name := string(payload[:nul])
		payload = payload[nul+1:]

		if len(payload) < plumbing.HashSize {
			return errors.New("malformed tree entry: truncated oid")
		}
		hash := plumbing.FromBytes(payload[:plumbing.HashSize])
		payload = payload[plumbing.HashSize:]

		t.Entries = append(t.Entries, TreeEntry{Name: name, Mode: mode, Hash: hash})
	}

	return nil
}
