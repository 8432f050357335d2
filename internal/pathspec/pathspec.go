// Package pathspec implements the trie-based path matcher shared by diff
// and status (spec C6 "Path Filter").
package pathspec

import (
	"path"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	godsutils "github.com/emirpasic/gods/utils"
)

// trie is one node of the path-component trie backing a Filter. matched
// marks a node reached by some requested path (or the root of a filter
// that accepts everything); children are ordered by component name so
// that enumeration is deterministic, not because order affects matching.
type trie struct {
	matched  bool
	children *treemap.Map
}

func newTrie(matched bool) *trie {
	return &trie{matched: matched, children: treemap.NewWith(godsutils.StringComparator)}
}

func (t *trie) child(name string) (*trie, bool) {
	v, ok := t.children.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*trie), true
}

// Filter selects which entries of a tree comparison are relevant. A Filter
// from New matches every path; Build restricts it to a fixed set of
// root-relative paths and their ancestors/descendants. The zero value
// Filter{} has no trie, and Matches or Join on it panics.
type Filter struct {
	routes *trie
	path   string
}

// New returns a Filter that matches every path.
func New() Filter {
	return Filter{routes: newTrie(true)}
}

// Build constructs a Filter that matches exactly the given paths, their
// parent directories (so traversal can reach them) and everything beneath
// them.
func Build(paths []string) Filter {
	root := newTrie(len(paths) == 0)

	for _, p := range paths {
		cur := root
		for _, comp := range strings.Split(path.Clean(p), "/") {
			if comp == "" || comp == "." {
				continue
			}
			next, ok := cur.child(comp)
			if !ok {
				next = newTrie(false)
				cur.children.Put(comp, next)
			}
			cur = next
		}
		cur.matched = true
	}

	return Filter{routes: root}
}

// Path returns the root-relative path this Filter is currently scoped to.
func (f Filter) Path() string { return f.path }

// Matches reports whether name should be visited under f: either f already
// matches everything below its current node, or name names a child route
// leading towards a requested path.
func (f Filter) Matches(name string) bool {
	if f.routes.matched {
		return true
	}
	_, ok := f.routes.child(name)
	return ok
}

// Join narrows f to the child named name, the way descending into a
// subtree during comparison does.
func (f Filter) Join(name string) Filter {
	next := f.routes
	if !f.routes.matched {
		if child, ok := f.routes.child(name); ok {
			next = child
		} else {
			next = newTrie(false)
		}
	}

	joined := name
	if f.path != "" {
		joined = f.path + "/" + name
	}

	return Filter{routes: next, path: joined}
}

// FilterNames returns the subset of names accepted by f, preserving the
// caller's input order.
func FilterNames(f Filter, names []string) []string {
	var out []string
	for _, n := range names {
		if f.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
