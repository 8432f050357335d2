// Package storage declares the storer contracts the object store (C2) and
// reference store (C3) implement; storage/filesystem provides the on-disk
// backing.
package storage

import (
	"errors"

	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/object"
)

// Errors distinguishing the object store's failure modes (spec §7).
var (
	// ErrNotFound is returned when an OID has no persisted object.
	ErrNotFound = errors.New("storage: object not found")
	// ErrCorrupt is returned when a persisted object's header or length
	// doesn't match its payload.
	ErrCorrupt = errors.New("storage: corrupt object")
)

// AmbiguousError reports a short prefix that resolved to more than one OID;
// check for it with errors.As. Candidates lists the full hashes found.
type AmbiguousError struct {
	Prefix     string
	Candidates []plumbing.Hash
}

func (e *AmbiguousError) Error() string {
	return "storage: ambiguous prefix " + e.Prefix
}

// ObjectStorer persists and retrieves the four closed object kinds keyed by
// content hash (spec §4.2).
type ObjectStorer interface {
	object.Loader

	// Store serialises obj, computing and returning its OID; storing an
	// OID that already exists is a no-op.
	Store(obj object.Object) (plumbing.Hash, error)
	// Exists reports whether oid has a persisted object.
	Exists(oid plumbing.Hash) (bool, error)
	// ShortName returns the shortest prefix of oid, at least k hex
	// characters (spec: "minimum unique prefix >= 7"), that uniquely
	// identifies it among stored objects.
	ShortName(oid plumbing.Hash, k int) (string, error)
	// Resolve expands a >=4 character hex prefix to the unique matching
	// OID, or an *AmbiguousError / ErrNotFound.
	Resolve(prefix string) (plumbing.Hash, error)
	// TreeDiff is a thin re-export of object.Diff (spec §4.2 "tree_diff is
	// a thin re-export of C7").
	TreeDiff(a, b plumbing.Hash, filter pathspec.Filter) ([]object.Change, error)
}

// ReferenceStorer implements the reference namespace (spec §4.3).
type ReferenceStorer interface {
	// ReadRef follows symbolic references (cycle-break at depth 10) and
	// returns the OID name ultimately resolves to, or ok=false if absent.
	ReadRef(name plumbing.ReferenceName) (hash plumbing.Hash, ok bool, err error)
	// UpdateRef writes name to point directly at newOID, through the lock
	// discipline of C1.
	UpdateRef(name plumbing.ReferenceName, newOID plumbing.Hash) error
	// CreateBranch writes refs/heads/<name> at startOID; fails if the ref
	// already exists or name is invalid.
	CreateBranch(name string, startOID plumbing.Hash) error
	// DeleteBranch removes refs/heads/<name>, returning its prior OID;
	// refuses to delete the branch HEAD currently resolves to.
	DeleteBranch(name string) (plumbing.Hash, error)
	// SetHead attaches HEAD to target's branch if target names one,
	// otherwise detaches HEAD directly at oid.
	SetHead(target string, oid plumbing.Hash) error
	// CurrentRef returns the reference HEAD resolves to: Symbolic when
	// attached to a branch, Hash when detached.
	CurrentRef() (*plumbing.Reference, error)
	// ListBranches returns every reference under refs/heads/.
	ListBranches() ([]*plumbing.Reference, error)
	// ShortRefName strips the refs/heads/ or refs/tags/ prefix for display.
	// Named distinctly from ObjectStorer.ShortName (OID prefix shortening):
	// a type embedding both, like filesystem.Storage, would otherwise have
	// two same-named methods with different signatures and promote neither.
	ShortRefName(name plumbing.ReferenceName) string
}
