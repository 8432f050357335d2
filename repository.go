package ash

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/config"
	"github.com/ash-vcs/ash/index"
	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/internal/revision"
	"github.com/ash-vcs/ash/internal/trace"
	"github.com/ash-vcs/ash/migrate"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage/filesystem"
	"github.com/ash-vcs/ash/worktree"
)

// metaDir is the repository's metadata directory, relative to the working
// directory (spec §6's repository layout root).
const metaDir = ".ash"

// Repository wires the object store (C2), reference store (C3) and
// revision parser (C8) over a single metadata filesystem, and the
// workspace bridge (C4) over the working directory, exposing exactly the
// consumer-facing contracts spec §6 lists for a command-line layer to
// drive: resolve a revision, diff two trees, open the index for update,
// build and apply a migration, compute merge bases, manage branches, set
// HEAD.
type Repository struct {
	meta     billy.Filesystem
	store    *filesystem.Storage
	revision *revision.Parser

	// Worktree lists/reads/writes/removes working-tree files (C4).
	Worktree *worktree.Workspace
}

func newRepository(worktreeFS, meta billy.Filesystem) *Repository {
	store := filesystem.NewStorage(meta, 0)
	return &Repository{
		meta:     meta,
		store:    store,
		revision: revision.New(store, store),
		Worktree: worktree.New(worktreeFS),
	}
}

// Open wires a Repository onto an existing ".ash" metadata directory under
// worktreeFS.
func Open(worktreeFS billy.Filesystem) (*Repository, error) {
	meta, err := worktreeFS.Chroot(metaDir)
	if err != nil {
		return nil, err
	}
	if _, err := meta.Stat("."); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	return newRepository(worktreeFS, meta), nil
}

// Init creates a fresh ".ash" metadata directory under worktreeFS and
// writes HEAD as "ref: refs/heads/master\n", the unborn-branch state spec
// boundary scenario 1 names as the literal file content a fresh repository
// must have, not just an in-memory resolution.
func Init(worktreeFS billy.Filesystem) (*Repository, error) {
	meta, err := worktreeFS.Chroot(metaDir)
	if err != nil {
		return nil, err
	}
	if err := meta.MkdirAll(".", 0o755); err != nil {
		return nil, err
	}

	repo := newRepository(worktreeFS, meta)
	if err := repo.store.SetUnbornHead("master"); err != nil {
		return nil, err
	}

	trace.General.Printf("ash: initialised repository at %s", metaDir)
	return repo, nil
}

// Resolve parses a revision expression (spec C8) and returns the OID it
// names.
func (r *Repository) Resolve(expr string) (plumbing.Hash, error) {
	return r.revision.Resolve(expr)
}

// ResolveCommit is Resolve, additionally requiring the result to name a
// commit object.
func (r *Repository) ResolveCommit(expr string) (plumbing.Hash, error) {
	return r.revision.ResolveCommit(expr)
}

// RevisionHints returns every ambiguity/not-found hint accumulated by
// Resolve/ResolveCommit calls on this Repository; hints are not cleared
// between calls.
func (r *Repository) RevisionHints() []revision.Hint {
	return r.revision.Hints
}

// Store persists obj, returning its OID (spec C2).
func (r *Repository) Store(obj object.Object) (plumbing.Hash, error) {
	return r.store.Store(obj)
}

// Load resolves oid to its decoded Object (spec C2).
func (r *Repository) Load(oid plumbing.Hash) (object.Object, error) {
	return r.store.Load(oid)
}

// ShortOID returns the shortest prefix of oid, at least 7 hex characters,
// that uniquely identifies it among stored objects.
func (r *Repository) ShortOID(oid plumbing.Hash) (string, error) {
	return r.store.ShortName(oid, 7)
}

// TreeDiff compares the trees reachable from a and b (each a tree OID, a
// commit OID, or the zero hash for "absent"), restricted to filter (spec
// C7, re-exported through C2 per spec §4.2).
func (r *Repository) TreeDiff(a, b plumbing.Hash, filter pathspec.Filter) ([]object.Change, error) {
	return r.store.TreeDiff(a, b, filter)
}

// LoadIndex reads the index file without acquiring the lock (spec C5).
func (r *Repository) LoadIndex() (*index.Manager, error) {
	return index.Load(r.meta)
}

// LoadIndexForUpdate acquires the index lock and loads it. granted is false
// if another process already holds the lock.
func (r *Repository) LoadIndexForUpdate() (mgr *index.Manager, granted bool, err error) {
	return index.LoadForUpdate(r.meta)
}

// Migration builds a Migration (spec C10) from a tree-diff, the currently
// held index, and the working directory.
func (r *Repository) Migration(idx *index.Manager, changes []object.Change) *migrate.Migration {
	return migrate.New(r.store, idx, r.Worktree, changes)
}

// MergeBase computes the merge bases of one and twos (spec C9): the common
// ancestors pruned of any element that is itself an ancestor of another
// element (property P6), generalised to however many parents a merge
// commit may carry.
func (r *Repository) MergeBase(one plumbing.Hash, twos []plumbing.Hash) ([]plumbing.Hash, error) {
	return object.Bases(r.store, one, twos)
}

// CreateBranch writes refs/heads/<name> at startOID (spec C3).
func (r *Repository) CreateBranch(name string, startOID plumbing.Hash) error {
	return r.store.CreateBranch(name, startOID)
}

// DeleteBranch removes refs/heads/<name>, returning its prior OID.
func (r *Repository) DeleteBranch(name string) (plumbing.Hash, error) {
	return r.store.DeleteBranch(name)
}

// ListBranches returns every reference under refs/heads/.
func (r *Repository) ListBranches() ([]*plumbing.Reference, error) {
	return r.store.ListBranches()
}

// SetHead attaches HEAD to target's branch if target names one, otherwise
// detaches HEAD directly at oid.
func (r *Repository) SetHead(target string, oid plumbing.Hash) error {
	return r.store.SetHead(target, oid)
}

// CurrentRef returns the reference HEAD resolves to.
func (r *Repository) CurrentRef() (*plumbing.Reference, error) {
	return r.store.CurrentRef()
}

// ShortRefName strips the refs/heads/ or refs/tags/ prefix from name for
// display (spec §11, mirrored from the original's checkout command).
func (r *Repository) ShortRefName(name plumbing.ReferenceName) string {
	return r.store.ShortRefName(name)
}

// IsDetached reports whether ref is a direct (detached-HEAD) reference
// rather than a symbolic one.
func IsDetached(ref *plumbing.Reference) bool {
	return ref.Type() == plumbing.HashReference
}

// Config loads the repository's merged local+global configuration (§10).
func (r *Repository) Config() (*config.Config, error) {
	return config.Load(r.meta)
}

// NewCommit builds a commit object for tree, parented on parents, with the
// given message. The author/committer identity comes from override if
// supplied, otherwise from the resolved repository/global config (§10);
// ErrNoIdentity propagates if neither supplies one.
func (r *Repository) NewCommit(tree plumbing.Hash, parents []plumbing.Hash, message string, override *config.Identity) (*object.Commit, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	identity, err := config.ResolveIdentity(cfg, override)
	if err != nil {
		return nil, err
	}

	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	return object.NewCommit(tree, parents, sig, sig, message), nil
}

// Pending-operation markers (spec §6, supplemented per §11): a merge,
// cherry-pick or revert in progress records its source commit in one of
// these files so a later invocation can find it again.
const (
	PendingMerge      = plumbing.MergeHead
	PendingCherryPick = plumbing.CherryPickHead
	PendingRevert     = plumbing.RevertHead
	pendingMergeMsg   = "MERGE_MSG"
)

// ErrNoPendingOperation is returned by ReadPending when name has no marker
// file.
var ErrNoPendingOperation = errors.New("ash: no pending operation")

// ReadPending returns the OID recorded under the given pending-marker
// reference name, or ErrNoPendingOperation if none is set.
func (r *Repository) ReadPending(name plumbing.ReferenceName) (plumbing.Hash, error) {
	oid, ok, err := r.store.ReadRef(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if !ok {
		return plumbing.ZeroHash, ErrNoPendingOperation
	}
	return oid, nil
}

// WritePending records oid under the given pending-marker reference name.
func (r *Repository) WritePending(name plumbing.ReferenceName, oid plumbing.Hash) error {
	return r.store.UpdateRef(name, oid)
}

// ClearPending removes the given pending-marker reference, tolerating its
// absence.
func (r *Repository) ClearPending(name plumbing.ReferenceName) error {
	path := strings.Join(strings.Split(string(name), "/"), "/")
	if err := r.meta.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WriteMergeMessage stores the queued commit message a pending merge will
// use once resolved (MERGE_MSG, spec §6).
func (r *Repository) WriteMergeMessage(msg string) error {
	f, err := r.meta.Create(pendingMergeMsg)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(msg))
	return err
}

// ReadMergeMessage returns the queued MERGE_MSG contents, or
// ErrNoPendingOperation if none is queued.
func (r *Repository) ReadMergeMessage() (string, error) {
	f, err := r.meta.Open(pendingMergeMsg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoPendingOperation
		}
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		buf.Write(chunk[:n])
		if err != nil {
			break
		}
	}
	return buf.String(), nil
}

// ClearMergeMessage removes MERGE_MSG, tolerating its absence.
func (r *Repository) ClearMergeMessage() error {
	if err := r.meta.Remove(pendingMergeMsg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
