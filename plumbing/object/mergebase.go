package object

import (
	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/ash-vcs/ash/plumbing"
)

// ancestorFlag marks, for one commit visited by CommonAncestors, which of
// the seed sets it descends from.
type ancestorFlag uint8

const (
	flagParent1 ancestorFlag = 1 << iota
	flagParent2
	flagResult
	flagStale
)

func (f ancestorFlag) has(bit ancestorFlag) bool { return f&bit != 0 }

// commonAncestors implements CommonAncestors (spec §4.9): a BFS over commit
// history, ordered by commit time descending, that marks every commit
// reachable from both `one` and every member of `twos` as Result, then
// drops any Result commit that is itself an ancestor of another Result
// commit (Stale).
type commonAncestors struct {
	loader Loader
	flags  map[plumbing.Hash]ancestorFlag
	queue  *priorityqueue.Queue
	result []plumbing.Hash
}

// queueItem pairs a commit with the timestamp it was enqueued under, so the
// priority queue can order by commit time without re-loading the commit.
type queueItem struct {
	hash plumbing.Hash
	when int64
}

func byTimeDescending(a, b interface{}) int {
	x, y := a.(queueItem), b.(queueItem)
	switch {
	case x.when > y.when:
		return -1
	case x.when < y.when:
		return 1
	default:
		return 0
	}
}

// CommonAncestors returns every commit reachable from both `one` and every
// member of `twos`, excluding any such commit that is itself an ancestor of
// another such commit.
func CommonAncestors(loader Loader, one plumbing.Hash, twos []plumbing.Hash) ([]plumbing.Hash, error) {
	ca := &commonAncestors{
		loader: loader,
		flags:  map[plumbing.Hash]ancestorFlag{},
		queue:  priorityqueue.NewWith(byTimeDescending),
	}

	if err := ca.seed(one, flagParent1); err != nil {
		return nil, err
	}
	for _, two := range twos {
		if err := ca.seed(two, flagParent2); err != nil {
			return nil, err
		}
	}

	if err := ca.run(); err != nil {
		return nil, err
	}

	out := make([]plumbing.Hash, 0, len(ca.result))
	for _, h := range ca.result {
		if !ca.flags[h].has(flagStale) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (ca *commonAncestors) seed(h plumbing.Hash, flag ancestorFlag) error {
	commit, err := ca.loadCommit(h)
	if err != nil {
		return err
	}
	ca.flags[h] |= flag
	ca.queue.Enqueue(queueItem{hash: h, when: commit.Committer.When.Unix()})
	return nil
}

func (ca *commonAncestors) loadCommit(h plumbing.Hash) (*Commit, error) {
	obj, err := ca.loader.Load(h)
	if err != nil {
		return nil, err
	}
	commit, ok := obj.(*Commit)
	if !ok {
		return nil, ErrUnsupportedObject
	}
	return commit, nil
}

func (ca *commonAncestors) run() error {
	for {
		if ca.allStale() {
			return nil
		}

		v, ok := ca.queue.Dequeue()
		if !ok {
			return nil
		}
		item := v.(queueItem)
		h := item.hash

		commit, err := ca.loadCommit(h)
		if err != nil {
			return err
		}

		flags := ca.flags[h]
		if flags.has(flagParent1) && flags.has(flagParent2) {
			ca.flags[h] |= flagResult
			ca.result = append(ca.result, h)
			if err := ca.propagate(commit, flags|flagResult|flagStale); err != nil {
				return err
			}
		} else {
			if err := ca.propagate(commit, flags); err != nil {
				return err
			}
		}
	}
}

func (ca *commonAncestors) allStale() bool {
	for _, flags := range ca.flags {
		if !flags.has(flagStale) {
			return false
		}
	}
	return true
}

// propagate carries flags to every parent (generalised from the original's
// single-parent walk; merge commits fan out to all ParentHashes), enqueuing
// a parent only when it gains at least one new flag.
func (ca *commonAncestors) propagate(commit *Commit, flags ancestorFlag) error {
	for _, parentHash := range commit.ParentHashes {
		before := ca.flags[parentHash]
		after := before | flags
		if after == before {
			continue
		}
		ca.flags[parentHash] = after

		parent, err := ca.loadCommit(parentHash)
		if err != nil {
			return err
		}
		ca.queue.Enqueue(queueItem{hash: parentHash, when: parent.Committer.When.Unix()})
	}
	return nil
}

// Bases computes the merge bases of one and twos (spec §4.9 "Bases.find"):
// the common ancestors with any ancestor-of-another-ancestor pair pruned,
// so the result satisfies P6 ("no element of the result is an ancestor of
// another result element"). Generalised to N-way per SPEC_FULL.md §13: the
// pairwise pruning below only ever compares candidate bases against each
// other, so it applies unchanged regardless of how many commits fed the
// initial CommonAncestors walk.
func Bases(loader Loader, one plumbing.Hash, twos []plumbing.Hash) ([]plumbing.Hash, error) {
	initial, err := CommonAncestors(loader, one, twos)
	if err != nil {
		return nil, err
	}

	bases := dedupe(initial)
	if len(bases) <= 1 {
		return bases, nil
	}

	redundant := map[plumbing.Hash]bool{}
	for i, b1 := range bases {
		if redundant[b1] {
			continue
		}
		for j, b2 := range bases {
			if i == j || redundant[b2] {
				continue
			}
			ancestors, err := CommonAncestors(loader, b1, []plumbing.Hash{b2})
			if err != nil {
				return nil, err
			}
			if contains(ancestors, b1) {
				redundant[b1] = true
				break
			}
		}
	}

	out := make([]plumbing.Hash, 0, len(bases))
	for _, b := range bases {
		if !redundant[b] {
			out = append(out, b)
		}
	}
	return out, nil
}

// IsAncestor reports whether ancestor is reachable from descendant,
// i.e. it appears among the common ancestors of the pair.
func IsAncestor(loader Loader, ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	ancestors, err := CommonAncestors(loader, ancestor, []plumbing.Hash{descendant})
	if err != nil {
		return false, err
	}
	return contains(ancestors, ancestor), nil
}

func dedupe(hashes []plumbing.Hash) []plumbing.Hash {
	seen := map[plumbing.Hash]bool{}
	out := make([]plumbing.Hash, 0, len(hashes))
	for _, h := range hashes {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

func contains(hashes []plumbing.Hash, h plumbing.Hash) bool {
	for _, x := range hashes {
		if x == h {
			return true
		}
	}
	return false
}
