// Package index implements the staged-snapshot manager (spec C5) atop the
// binary DIRC format in plumbing/format/index.
package index

import (
	"errors"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	godsutils "github.com/emirpasic/gods/utils"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ash-vcs/ash/internal/lock"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	wireindex "github.com/ash-vcs/ash/plumbing/format/index"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/worktree"
)

const filePath = "index"

// ErrChecksumMismatch is recorded (not returned) by Load when the
// trailing SHA-1 doesn't verify — spec §9 "checksum mismatch policy":
// a read-path warning, never fatal.
var ErrChecksumMismatch = errors.New("index: checksum mismatch")

// Manager is the in-memory, lock-guarded view of the index file. Entries
// are kept in an emirpasic/gods treemap keyed by (path, stage) so
// EntriesIter is always produced in the ordering invariant spec §4.5
// requires without a separate sort pass.
type Manager struct {
	fs       billy.Filesystem
	entries  *treemap.Map
	l        *lock.File
	warnings []error
}

func entryKey(path string, stage wireindex.Stage) string {
	return path + "\x00" + strconv.Itoa(int(stage))
}

func newManager(fs billy.Filesystem) *Manager {
	return &Manager{fs: fs, entries: treemap.NewWith(godsutils.StringComparator)}
}

// Load reads the index file without acquiring the lock, verifying the
// trailing checksum. A mismatch is recorded as a Warning, not returned.
func Load(fs billy.Filesystem) (*Manager, error) {
	m := newManager(fs)
	if err := m.readFile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) readFile() error {
	f, err := m.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	idx := wireindex.NewIndex()
	dec := wireindex.NewDecoder(f)
	err = dec.Decode(idx)
	if err != nil && errors.Is(err, wireindex.ErrInvalidChecksum) {
		m.warnings = append(m.warnings, ErrChecksumMismatch)
		err = nil
	}
	if err != nil {
		return err
	}

	for _, e := range idx.Entries {
		m.entries.Put(entryKey(e.Name, e.Stage), e)
	}
	return nil
}

// Warnings returns recoverable conditions recorded while loading.
func (m *Manager) Warnings() []error { return m.warnings }

// LoadForUpdate acquires the index lock, then loads. granted is false
// (with a nil Manager) if another process already holds the lock.
func LoadForUpdate(fs billy.Filesystem) (mgr *Manager, granted bool, err error) {
	l := lock.New(fs, filePath)
	if err := l.Hold(); err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, false, nil
		}
		return nil, false, err
	}

	m := newManager(fs)
	m.l = l
	if err := m.readFile(); err != nil {
		l.Rollback()
		return nil, false, err
	}
	return m, true, nil
}

// WriteUpdates serialises entries in (path, stage) order, computes the
// trailing SHA-1, and commits through the held lock.
func (m *Manager) WriteUpdates() error {
	if m.l == nil {
		return lock.ErrNotHolding
	}

	idx := &wireindex.Index{Version: wireindex.Version, Entries: m.EntriesIter()}
	enc := wireindex.NewEncoder(m.l)
	if err := enc.Encode(idx); err != nil {
		m.l.Rollback()
		return err
	}
	return m.l.Commit()
}

// Rollback releases the lock without writing.
func (m *Manager) Rollback() error {
	if m.l == nil {
		return lock.ErrNotHolding
	}
	return m.l.Rollback()
}

// Add inserts or replaces the stage-0 entry at path, evicts any
// stage-1/2/3 siblings on the same path, and removes any entry whose path
// is a parent directory of path or lies under path/.
func (m *Manager) Add(path string, obj object.Object, stat worktree.Stat) error {
	entry := &wireindex.Entry{
		Name:       path,
		Stage:      wireindex.Merged,
		Hash:       obj.ID(),
		Mode:       stat.Mode,
		Size:       uint32(stat.Size),
		Dev:        stat.Dev,
		Inode:      stat.Inode,
		UID:        stat.UID,
		GID:        stat.GID,
		CreatedAt:  toTime(stat.CreatedAt),
		ModifiedAt: toTime(stat.ModifiedAt),
	}
	return m.addEntry(entry)
}

func (m *Manager) addEntry(entry *wireindex.Entry) error {
	m.removeConflictStages(entry.Name)
	m.removePathOverlap(entry.Name)
	m.entries.Put(entryKey(entry.Name, entry.Stage), entry)
	return nil
}

func (m *Manager) removeConflictStages(path string) {
	for _, stage := range []wireindex.Stage{wireindex.Ancestor, wireindex.Ours, wireindex.Theirs} {
		m.entries.Remove(entryKey(path, stage))
	}
}

// removePathOverlap drops any entry whose path is a parent directory of
// path, or whose path lies under path/ (a file replacing a directory, or
// vice versa).
func (m *Manager) removePathOverlap(path string) {
	var toRemove []string
	m.entries.Each(func(key, value interface{}) {
		e := value.(*wireindex.Entry)
		if e.Name == path {
			return
		}
		if strings.HasPrefix(path, e.Name+"/") || strings.HasPrefix(e.Name, path+"/") {
			toRemove = append(toRemove, key.(string))
		}
	})
	for _, k := range toRemove {
		m.entries.Remove(k)
	}
}

// Remove drops the entry at path and any descendant entries.
func (m *Manager) Remove(path string) {
	m.removeConflictStages(path)
	m.entries.Remove(entryKey(path, wireindex.Merged))

	var toRemove []string
	m.entries.Each(func(key, value interface{}) {
		e := value.(*wireindex.Entry)
		if strings.HasPrefix(e.Name, path+"/") {
			toRemove = append(toRemove, key.(string))
		}
	})
	for _, k := range toRemove {
		m.entries.Remove(k)
	}
}

// ConflictAdd writes the three conflict stages simultaneously, clearing
// stage 0. Any of base/our/their may be nil, meaning that side is absent
// (spec §4.10's conflict sides are all optional).
func (m *Manager) ConflictAdd(path string, base, our, their *StageEntry) {
	m.entries.Remove(entryKey(path, wireindex.Merged))

	for stage, e := range map[wireindex.Stage]*StageEntry{
		wireindex.Ancestor: base,
		wireindex.Ours:     our,
		wireindex.Theirs:   their,
	} {
		if e == nil {
			m.entries.Remove(entryKey(path, stage))
			continue
		}
		m.entries.Put(entryKey(path, stage), &wireindex.Entry{
			Name: path,
			Stage: stage,
			Hash:  e.Hash,
			Mode:  e.Mode,
		})
	}
}

// StageEntry is one side of a conflict passed to ConflictAdd.
type StageEntry struct {
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// UpdateEntryStat refreshes the cached stat fields of the entry at
// (path, stage) without changing its OID.
func (m *Manager) UpdateEntryStat(path string, stage wireindex.Stage, stat worktree.Stat) error {
	v, ok := m.entries.Get(entryKey(path, stage))
	if !ok {
		return wireindex.ErrEntryNotFound
	}
	e := v.(*wireindex.Entry)
	e.Size = uint32(stat.Size)
	e.Dev = stat.Dev
	e.Inode = stat.Inode
	e.UID = stat.UID
	e.GID = stat.GID
	e.CreatedAt = toTime(stat.CreatedAt)
	e.ModifiedAt = toTime(stat.ModifiedAt)
	return nil
}

// TrackedFile reports whether path has a stage-0 entry.
func (m *Manager) TrackedFile(path string) bool {
	_, ok := m.entries.Get(entryKey(path, wireindex.Merged))
	return ok
}

// StatMatches reports whether path has a stage-0 entry whose cached stat
// tuple — size, mode, uid, gid, dev, inode, ctime and mtime — agrees with
// stat in full. Any single mismatch forces a re-hash, so every field that
// can diverge without the content changing (a chmod, a hardlink, a restore
// from backup) has to be checked, not just size and mtime.
func (m *Manager) StatMatches(path string, stat worktree.Stat) bool {
	v, ok := m.entries.Get(entryKey(path, wireindex.Merged))
	if !ok {
		return false
	}
	e := v.(*wireindex.Entry)
	return e.Size == uint32(stat.Size) &&
		e.Mode == stat.Mode &&
		e.UID == stat.UID &&
		e.GID == stat.GID &&
		e.Dev == stat.Dev &&
		e.Inode == stat.Inode &&
		e.CreatedAt.Equal(toTime(stat.CreatedAt)) &&
		e.ModifiedAt.Equal(toTime(stat.ModifiedAt))
}

// TrackedDirectory reports whether any entry's path starts with path/.
func (m *Manager) TrackedDirectory(path string) bool {
	found := false
	m.entries.Each(func(key, value interface{}) {
		if found {
			return
		}
		e := value.(*wireindex.Entry)
		if strings.HasPrefix(e.Name, path+"/") {
			found = true
		}
	})
	return found
}

// ChildPaths returns the direct child path components tracked under dir.
func (m *Manager) ChildPaths(dir string) []string {
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}

	seen := map[string]bool{}
	var out []string
	m.entries.Each(func(key, value interface{}) {
		e := value.(*wireindex.Entry)
		if !strings.HasPrefix(e.Name, prefix) {
			return
		}
		rest := strings.TrimPrefix(e.Name, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if !seen[rest] {
			seen[rest] = true
			out = append(out, rest)
		}
	})
	sort.Strings(out)
	return out
}

// EntriesIter returns every entry in (path, stage) order.
func (m *Manager) EntriesIter() []*wireindex.Entry {
	out := make([]*wireindex.Entry, 0, m.entries.Size())
	m.entries.Each(func(_, value interface{}) {
		out = append(out, value.(*wireindex.Entry))
	})
	return out
}

// HasConflicts reports whether any entry carries a non-zero stage.
func (m *Manager) HasConflicts() bool {
	found := false
	m.entries.Each(func(_, value interface{}) {
		if value.(*wireindex.Entry).Stage != wireindex.Merged {
			found = true
		}
	})
	return found
}

func toTime(t worktree.Timespec) time.Time {
	return time.Unix(t.Sec, t.Nsec)
}

// AddAll hashes the given workspace paths concurrently via errgroup, then
// applies the resulting (path, object, stat) triples to the index
// sequentially so mutation order is preserved (spec §5).
func (m *Manager) AddAll(ws *worktree.Workspace, paths []string, hash func([]byte) (object.Object, error)) error {
	type result struct {
		path string
		obj  object.Object
		stat worktree.Stat
	}
	results := make([]result, len(paths))

	g := &errgroup.Group{}
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			data, err := ws.ReadFile(p)
			if err != nil {
				return err
			}
			stat, err := ws.StatFile(p)
			if err != nil {
				return err
			}
			obj, err := hash(data)
			if err != nil {
				return err
			}
			results[i] = result{path: p, obj: obj, stat: stat}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if err := m.Add(r.path, r.obj, r.stat); err != nil {
			return err
		}
	}
	return nil
}
