// Package migrate applies a tree-diff to the workspace and index (spec
// C10 "Migration"): the engine checkout and merge both drive once their
// caller has resolved a target tree and loaded the index for update.
package migrate

import (
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/ash-vcs/ash/index"
	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/internal/trace"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage"
	"github.com/ash-vcs/ash/worktree"
)

const (
	staleFileCategory = "Your local changes to the following files would be overwritten by checkout"
	untrackedCategory = "The following untracked working tree files would be overwritten by checkout"
)

// ErrConflict is returned by Apply when conflict detection finds at least
// one offending path. Migration.Errors carries the formatted messages;
// neither the workspace nor the index has been touched.
var ErrConflict = errors.New("migrate: local changes would be overwritten")

// Migration partitions a tree-diff into deletes/updates/creates, detects
// conflicts against the current workspace and index before mutating
// anything, then applies the change set in the order spec §4.10 requires.
type Migration struct {
	objects storage.ObjectStorer
	idx     *index.Manager
	ws      *worktree.Workspace
	changes []object.Change

	deletes []object.Change
	updates []object.Change
	creates []object.Change

	// Errors accumulates one formatted message per conflict category that
	// found an offending path. Non-empty after Apply means Apply returned
	// ErrConflict and made no changes.
	Errors []string
}

// New builds a Migration from a tree-diff (spec C7's output) together with
// the object store it reads blob content from, the index it mutates on
// success, and the workspace it writes files into.
func New(objects storage.ObjectStorer, idx *index.Manager, ws *worktree.Workspace, changes []object.Change) *Migration {
	return &Migration{objects: objects, idx: idx, ws: ws, changes: changes}
}

// Apply runs conflict detection, then — only if nothing conflicts — mutates
// the workspace and index. The caller remains responsible for writing the
// index and advancing HEAD afterwards (spec §4.10 point 6).
func (m *Migration) Apply() error {
	m.partition()

	untracked, err := m.untrackedPaths()
	if err != nil {
		return err
	}

	var staleFiles, blocked []string
	for _, c := range append(append([]object.Change{}, m.deletes...), m.updates...) {
		if m.staleFile(c.Path) {
			staleFiles = append(staleFiles, c.Path)
		}
	}
	for _, c := range append(append([]object.Change{}, m.creates...), m.updates...) {
		if m.blockedCreate(c.Path, untracked) {
			blocked = append(blocked, c.Path)
		}
	}

	if len(staleFiles) > 0 {
		m.Errors = append(m.Errors, formatConflict(staleFileCategory, staleFiles))
	}
	if len(blocked) > 0 {
		m.Errors = append(m.Errors, formatConflict(untrackedCategory, dedupe(blocked)))
	}
	if len(m.Errors) > 0 {
		trace.Migration.Printf("migrate: %d conflicting path(s), aborting", len(staleFiles)+len(blocked))
		return ErrConflict
	}

	trace.Migration.Printf("migrate: applying %d delete(s), %d update(s), %d create(s)",
		len(m.deletes), len(m.updates), len(m.creates))

	if err := m.applyDeletes(); err != nil {
		return err
	}
	if err := m.applyUpdates(); err != nil {
		return err
	}
	return m.applyCreates()
}

func (m *Migration) partition() {
	for _, c := range m.changes {
		switch {
		case c.Before != nil && c.After == nil:
			m.deletes = append(m.deletes, c)
		case c.Before == nil && c.After != nil:
			m.creates = append(m.creates, c)
		default:
			m.updates = append(m.updates, c)
		}
	}
}

// staleFile reports whether path is tracked, present in the workspace, and
// its stat no longer matches the index entry the migration is about to
// overwrite or delete — spec §4.10 bullet "stale file".
func (m *Migration) staleFile(path string) bool {
	if !m.idx.TrackedFile(path) {
		return false
	}
	isDir, exists, err := m.ws.Exists(path)
	if err != nil || !exists || isDir {
		return false
	}
	stat, err := m.ws.StatFile(path)
	if err != nil {
		return false
	}
	return !m.idx.StatMatches(path, stat)
}

// blockedCreate reports whether writing path would destroy untracked work:
// the path itself is an untracked file, a directory already occupies it and
// holds untracked files beneath it, or a path component on the way to it is
// an untracked file standing in for a directory.
func (m *Migration) blockedCreate(path string, untracked untrackedSet) bool {
	isDir, exists, err := m.ws.Exists(path)
	if err == nil && exists {
		if !isDir && untracked[path] {
			return true
		}
		if isDir && untracked.hasPrefix(path) {
			return true
		}
	}

	comps := strings.Split(path, "/")
	for i := 1; i < len(comps); i++ {
		parent := strings.Join(comps[:i], "/")
		if untracked[parent] {
			return true
		}
	}
	return false
}

type untrackedSet map[string]bool

func (u untrackedSet) hasPrefix(dir string) bool {
	prefix := dir + "/"
	for p := range u {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *Migration) untrackedPaths() (untrackedSet, error) {
	all, err := m.ws.ListFiles(pathspec.New())
	if err != nil {
		return nil, err
	}
	set := make(untrackedSet, len(all))
	for _, p := range all {
		if !m.idx.TrackedFile(p) {
			set[p] = true
		}
	}
	return set, nil
}

func formatConflict(category string, paths []string) string {
	sort.Strings(paths)
	var b strings.Builder
	b.WriteString(category)
	b.WriteByte(':')
	for _, p := range paths {
		b.WriteString("\n\t")
		b.WriteString(p)
	}
	return b.String()
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// applyDeletes removes deepest paths first so a directory's children are
// always gone before an attempt to remove the directory itself.
func (m *Migration) applyDeletes() error {
	deletes := append([]object.Change{}, m.deletes...)
	sort.Slice(deletes, func(i, j int) bool { return depth(deletes[i].Path) > depth(deletes[j].Path) })

	for _, c := range deletes {
		if err := m.ws.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		m.idx.Remove(c.Path)
	}
	return nil
}

func (m *Migration) applyUpdates() error {
	for _, c := range m.updates {
		if err := m.writeEntry(c); err != nil {
			return err
		}
	}
	return nil
}

// applyCreates writes shallowest paths first so a file's parent directory
// exists before the file is written into it.
func (m *Migration) applyCreates() error {
	creates := append([]object.Change{}, m.creates...)
	sort.Slice(creates, func(i, j int) bool { return depth(creates[i].Path) < depth(creates[j].Path) })

	for _, c := range creates {
		if err := m.writeEntry(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) writeEntry(c object.Change) error {
	obj, err := m.objects.Load(c.After.Hash)
	if err != nil {
		return err
	}
	blob, ok := obj.(*object.Blob)
	if !ok {
		return errors.New("migrate: " + c.Path + " target is not a blob")
	}

	if err := m.ws.WriteFile(c.Path, blob.Bytes(), c.After.Mode); err != nil {
		return err
	}
	stat, err := m.ws.StatFile(c.Path)
	if err != nil {
		return err
	}
	return m.idx.Add(c.Path, blob, stat)
}

func depth(path string) int { return strings.Count(path, "/") }
