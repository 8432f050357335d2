package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/internal/lock"
	"github.com/ash-vcs/ash/plumbing"
)

const maxSymbolicDepth = 10

const refHeadsDir = "refs/heads"

// Sentinel errors the reference store distinguishes (spec §4.3, §7).
var (
	// ErrInvalidRefName is returned by CreateBranch/UpdateRef for a
	// syntactically invalid reference name.
	ErrInvalidRefName = errors.New("reference: invalid name")
	// ErrRefExists is returned by CreateBranch when the name is already taken.
	ErrRefExists = errors.New("reference: already exists")
	// ErrRefNotFound is returned by DeleteBranch for an unknown branch.
	ErrRefNotFound = errors.New("reference: not found")
	// ErrCurrentBranch is returned by DeleteBranch when asked to delete the
	// branch HEAD currently resolves to (spec boundary scenario 6).
	ErrCurrentBranch = errors.New("reference: cannot delete the current branch")
	// ErrSymbolicCycle is returned by ReadRef when following symbolic
	// references exceeds the maximum depth.
	ErrSymbolicCycle = errors.New("reference: symbolic reference cycle")
)

// ReferenceStorage is the C3 implementation: references live as plain
// files under the repository root, HEAD at the top and branches/tags
// under refs/.
type ReferenceStorage struct {
	fs billy.Filesystem
}

// NewReferenceStorage returns a ReferenceStorage rooted at fs.
func NewReferenceStorage(fs billy.Filesystem) *ReferenceStorage {
	return &ReferenceStorage{fs: fs}
}

// ValidName reports whether name satisfies spec §4.3's naming rule.
func ValidName(name plumbing.ReferenceName) bool {
	switch name {
	case plumbing.HEAD, plumbing.FetchHead, plumbing.OrigHead,
		plumbing.MergeHead, plumbing.CherryPickHead, plumbing.RevertHead:
		return true
	}

	s := string(name)
	if !strings.HasPrefix(s, "refs/") {
		return false
	}
	for _, part := range strings.Split(s, "/") {
		if part == "" || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".lock") {
			return false
		}
		if strings.Contains(part, "..") {
			return false
		}
		for _, bad := range []string{"@{", ":", "?", "*", "[", "\\"} {
			if strings.Contains(part, bad) {
				return false
			}
		}
		for _, r := range part {
			if r <= 0x1f || r == 0x7f || r == ' ' {
				return false
			}
		}
	}
	return true
}

func (r *ReferenceStorage) path(name plumbing.ReferenceName) string {
	return r.fs.Join(strings.Split(string(name), "/")...)
}

// readRaw reads and parses the reference stored directly at name's path,
// without following symbolic targets.
func (r *ReferenceStorage) readRaw(name plumbing.ReferenceName) (*plumbing.Reference, bool, error) {
	f, err := r.fs.Open(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, false, err
	}

	line := strings.TrimSpace(buf.String())
	if target, ok := strings.CutPrefix(line, "ref: "); ok {
		return plumbing.NewSymbolicReference(name, plumbing.ReferenceName(target)), true, nil
	}

	hash, err := plumbing.FromHex(line)
	if err != nil {
		return nil, false, fmt.Errorf("reference: malformed value at %s: %w", name, err)
	}
	return plumbing.NewHashReference(name, hash), true, nil
}

// ReadRef follows symbolic references iteratively, cycle-breaking at depth
// maxSymbolicDepth.
func (r *ReferenceStorage) ReadRef(name plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	cur := name
	for depth := 0; depth < maxSymbolicDepth; depth++ {
		ref, ok, err := r.readRaw(cur)
		if err != nil || !ok {
			return plumbing.ZeroHash, false, err
		}
		if ref.Type() == plumbing.HashReference {
			return ref.Hash(), true, nil
		}
		cur = ref.Target()
	}
	return plumbing.ZeroHash, false, ErrSymbolicCycle
}

func (r *ReferenceStorage) writeValue(name plumbing.ReferenceName, value string) error {
	path := r.path(name)
	l := lock.New(r.fs, path)
	if err := l.Hold(); err != nil {
		return err
	}
	if _, err := l.Write([]byte(value + "\n")); err != nil {
		l.Rollback()
		return err
	}
	return l.Commit()
}

// UpdateRef writes name to point directly at newOID, through C1's lock
// discipline.
func (r *ReferenceStorage) UpdateRef(name plumbing.ReferenceName, newOID plumbing.Hash) error {
	if !ValidName(name) {
		return ErrInvalidRefName
	}
	return r.writeValue(name, newOID.String())
}

// CreateBranch writes refs/heads/<name> at startOID.
func (r *ReferenceStorage) CreateBranch(name string, startOID plumbing.Hash) error {
	full := plumbing.NewBranchReferenceName(name)
	if !ValidName(full) {
		return ErrInvalidRefName
	}

	_, ok, err := r.readRaw(full)
	if err != nil {
		return err
	}
	if ok {
		return ErrRefExists
	}

	return r.writeValue(full, startOID.String())
}

// DeleteBranch removes refs/heads/<name>, returning its prior OID;
// refuses to delete the branch HEAD currently resolves to.
func (r *ReferenceStorage) DeleteBranch(name string) (plumbing.Hash, error) {
	full := plumbing.NewBranchReferenceName(name)

	current, err := r.CurrentRef()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if current.Type() == plumbing.SymbolicReference && current.Target() == full {
		return plumbing.ZeroHash, ErrCurrentBranch
	}

	oid, ok, err := r.ReadRef(full)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !ok {
		return plumbing.ZeroHash, ErrRefNotFound
	}

	if err := r.fs.Remove(r.path(full)); err != nil {
		return plumbing.ZeroHash, err
	}
	return oid, nil
}

// SetHead attaches HEAD to target's branch if target names one;
// otherwise detaches HEAD directly at oid.
func (r *ReferenceStorage) SetHead(target string, oid plumbing.Hash) error {
	branch := plumbing.NewBranchReferenceName(target)
	if _, ok, err := r.readRaw(branch); err != nil {
		return err
	} else if ok {
		return r.writeValue(plumbing.HEAD, "ref: "+string(branch))
	}
	return r.writeValue(plumbing.HEAD, oid.String())
}

// SetUnbornHead writes HEAD as a symbolic reference to branch's full name,
// unconditionally, even though branch doesn't exist yet — the state a
// freshly initialised repository needs before its first commit.
func (r *ReferenceStorage) SetUnbornHead(branch string) error {
	full := plumbing.NewBranchReferenceName(branch)
	return r.writeValue(plumbing.HEAD, "ref: "+string(full))
}

// CurrentRef returns the reference HEAD resolves to: Symbolic when
// attached to a branch, Hash when detached.
func (r *ReferenceStorage) CurrentRef() (*plumbing.Reference, error) {
	ref, ok, err := r.readRaw(plumbing.HEAD)
	if err != nil {
		return nil, err
	}
	if !ok {
		return plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master")), nil
	}
	return ref, nil
}

// ListBranches returns every reference under refs/heads/.
func (r *ReferenceStorage) ListBranches() ([]*plumbing.Reference, error) {
	entries, err := r.fs.ReadDir(r.fs.Join(strings.Split(refHeadsDir, "/")...))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []*plumbing.Reference
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := plumbing.NewBranchReferenceName(e.Name())
		ref, ok, err := r.readRaw(name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// ShortRefName strips the refs/heads/ or refs/tags/ prefix for display,
// mirrored from the original's checkout command use of short_name.
func (r *ReferenceStorage) ShortRefName(name plumbing.ReferenceName) string {
	return name.Short()
}
