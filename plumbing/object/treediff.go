package object

import (
	"fmt"

	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
)

// Loader resolves an OID to its decoded Object; it is satisfied by the
// object store without treediff needing to import it (spec C7 sits below
// C2 in the dependency order, not above it).
type Loader interface {
	Load(hash plumbing.Hash) (Object, error)
}

// Entry is one side of a diff change: the (name, oid, mode) that compare_oids
// calls a DatabaseEntry.
type Entry struct {
	Name string
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// Change is one path's before/after pair. Either side may be nil: nil
// Before is an addition, nil After is a deletion, both set is a
// modification.
type Change struct {
	Path   string
	Before *Entry
	After  *Entry
}

// Diff recursively compares the trees reachable from a and b (which may
// each be a tree OID, a commit OID, or the zero hash meaning "absent"),
// restricted to paths accepted by filter, and returns one Change per
// differing path (spec §4.7).
func Diff(loader Loader, a, b plumbing.Hash, filter pathspec.Filter) ([]Change, error) {
	d := &differ{loader: loader, changes: map[string]*Change{}}
	if err := d.compare(a, b, filter); err != nil {
		return nil, err
	}
	return d.ordered(), nil
}

type differ struct {
	loader  Loader
	changes map[string]*Change
	order   []string
}

func (d *differ) record(path string, before, after *Entry) {
	if _, ok := d.changes[path]; !ok {
		d.order = append(d.order, path)
	}
	d.changes[path] = &Change{Path: path, Before: before, After: after}
}

func (d *differ) ordered() []Change {
	out := make([]Change, 0, len(d.order))
	for _, p := range d.order {
		out = append(out, *d.changes[p])
	}
	return out
}

func (d *differ) compare(a, b plumbing.Hash, filter pathspec.Filter) error {
	if a == b {
		return nil
	}

	aList, aEntries, err := d.entriesOf(a)
	if err != nil {
		return err
	}
	bList, bEntries, err := d.entriesOf(b)
	if err != nil {
		return err
	}

	if err := d.detectDeletions(aList, bEntries, filter); err != nil {
		return err
	}
	return d.detectAdditions(bList, aEntries, filter)
}

// entriesOf resolves oid (tree or commit, zero meaning absent) to its
// immediate children, both in canonical tree order and keyed by name.
func (d *differ) entriesOf(oid plumbing.Hash) ([]*Entry, map[string]*Entry, error) {
	if oid.IsZero() {
		return nil, map[string]*Entry{}, nil
	}

	tree, err := d.treeOf(oid)
	if err != nil {
		return nil, nil, err
	}

	list := make([]*Entry, 0, len(tree.Entries))
	byName := make(map[string]*Entry, len(tree.Entries))
	for _, e := range tree.Entries {
		entry := &Entry{Name: e.Name, Hash: e.Hash, Mode: e.Mode}
		list = append(list, entry)
		byName[e.Name] = entry
	}
	return list, byName, nil
}

// treeOf loads oid and, if it names a commit, follows it to the root tree.
func (d *differ) treeOf(oid plumbing.Hash) (*Tree, error) {
	obj, err := d.loader.Load(oid)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *Tree:
		return o, nil
	case *Commit:
		treeObj, err := d.loader.Load(o.TreeHash)
		if err != nil {
			return nil, err
		}
		tree, ok := treeObj.(*Tree)
		if !ok {
			return nil, fmt.Errorf("commit %s points at non-tree object %s", oid, o.TreeHash)
		}
		return tree, nil
	default:
		return nil, fmt.Errorf("object %s is neither a tree nor a commit", oid)
	}
}

func (d *differ) detectDeletions(a []*Entry, b map[string]*Entry, filter pathspec.Filter) error {
	for _, aEntry := range a {
		name := aEntry.Name
		if !filter.Matches(name) {
			continue
		}

		bEntry := b[name]
		if bEntry != nil && bEntry.Hash == aEntry.Hash && bEntry.Mode == aEntry.Mode {
			continue
		}

		sub := filter.Join(name)

		aIsTree := aEntry.Mode.IsDirectoryType()
		bIsTree := bEntry != nil && bEntry.Mode.IsDirectoryType()

		if aIsTree && bIsTree {
			if err := d.compare(aEntry.Hash, bEntry.Hash, sub); err != nil {
				return err
			}
			continue
		}

		d.record(sub.Path(), aEntry, bEntry)
	}
	return nil
}

func (d *differ) detectAdditions(b []*Entry, a map[string]*Entry, filter pathspec.Filter) error {
	for _, bEntry := range b {
		name := bEntry.Name
		if _, ok := a[name]; ok {
			continue
		}
		if !filter.Matches(name) {
			continue
		}

		sub := filter.Join(name)

		if bEntry.Mode.IsDirectoryType() {
			if err := d.compare(plumbing.ZeroHash, bEntry.Hash, sub); err != nil {
				return err
			}
			continue
		}

		d.record(sub.Path(), nil, bEntry)
	}
	return nil
}
