// Package worktree is the pure filesystem bridge (spec C4 "Workspace"):
// listing, reading, writing and removing working-tree files, with stat
// metadata rich enough for the index's up-to-date comparison (spec §4.5).
package worktree

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing/filemode"
)

// metaDir is excluded from every listing (spec §4.4 "excluding .ash/").
const metaDir = ".ash"

// ErrIsDirectory is returned by ReadFile for a directory path.
var ErrIsDirectory = errors.New("worktree: is a directory")

// Stat is the metadata the index needs to decide whether a file changed
// (spec §4.5's full stat tuple): mode, size and mtime, plus the platform
// fields populated by fillPlatformStat (dev/inode/uid/gid/ctime on unix;
// elsewhere dev/inode/uid/gid stay zero and ctime repeats mtime).
type Stat struct {
	Mode       filemode.FileMode
	Size       int64
	CreatedAt  Timespec
	ModifiedAt Timespec
	Dev        uint32
	Inode      uint32
	UID        uint32
	GID        uint32
}

// Timespec is a (seconds, nanoseconds) pair, matching the index entry's
// timestamp encoding.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Workspace bridges a billy.Filesystem rooted at a repository's working
// directory.
type Workspace struct {
	fs billy.Filesystem
}

// New returns a Workspace rooted at fs.
func New(fs billy.Filesystem) *Workspace {
	return &Workspace{fs: fs}
}

// ListFiles walks the workspace depth-first, excluding .ash/, returning
// paths accepted by filter in byte-lexicographic order.
func (w *Workspace) ListFiles(filter pathspec.Filter) ([]string, error) {
	var out []string
	if err := w.walk("", filter, &out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (w *Workspace) walk(dir string, filter pathspec.Filter, out *[]string) error {
	entries, err := w.fs.ReadDir(w.fsPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if dir == "" && e.Name() == metaDir {
			continue
		}
		if !filter.Matches(e.Name()) {
			continue
		}

		rel := e.Name()
		if dir != "" {
			rel = dir + "/" + e.Name()
		}

		if e.IsDir() {
			if err := w.walk(rel, filter.Join(e.Name()), out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, rel)
	}
	return nil
}

func (w *Workspace) fsPath(rel string) string {
	if rel == "" {
		return "."
	}
	return w.fs.Join(strings.Split(rel, "/")...)
}

// ReadFile returns the full contents of the file at path. A symbolic link
// is read as the blob of its target string (spec §4.4).
func (w *Workspace) ReadFile(relPath string) ([]byte, error) {
	info, err := w.fs.Lstat(w.fsPath(relPath))
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := w.fs.Readlink(w.fsPath(relPath))
		if err != nil {
			return nil, err
		}
		return []byte(target), nil
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}

	f, err := w.fs.Open(w.fsPath(relPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 0, info.Size())
	chunk := make([]byte, 32*1024)
	for {
		n, err := f.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}

// Exists reports whether relPath is present in the workspace and, if so,
// whether it names a directory.
func (w *Workspace) Exists(relPath string) (isDir bool, exists bool, err error) {
	info, err := w.fs.Lstat(w.fsPath(relPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	return info.IsDir(), true, nil
}

// StatFile returns relPath's metadata: mode, size, ctime/mtime with
// nanosecond precision, dev, inode.
func (w *Workspace) StatFile(relPath string) (Stat, error) {
	info, err := w.fs.Lstat(w.fsPath(relPath))
	if err != nil {
		return Stat{}, err
	}

	mode, err := filemode.NewFromOSFileMode(info.Mode())
	if err != nil {
		return Stat{}, err
	}

	st := Stat{Mode: mode, Size: info.Size()}
	mtime := info.ModTime()
	st.ModifiedAt = Timespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	st.CreatedAt = st.ModifiedAt
	fillPlatformStat(&st, info)
	return st, nil
}

// WriteFile writes data at relPath with the given mode, creating parent
// directories as needed. A symlink mode writes data as the link target.
func (w *Workspace) WriteFile(relPath string, data []byte, mode filemode.FileMode) error {
	full := w.fsPath(relPath)
	dir := path.Dir(strings.ReplaceAll(relPath, "\\", "/"))
	if dir != "." {
		if err := w.fs.MkdirAll(w.fsPath(dir), 0o755); err != nil {
			return err
		}
	}

	if mode == filemode.Symlink {
		_ = w.fs.Remove(full)
		return w.fs.Symlink(string(data), full)
	}

	perm, err := mode.ToOSFileMode()
	if err != nil {
		return err
	}

	f, err := w.fs.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// Remove deletes the file at relPath and removes any empty parent
// directories up to the workspace root.
func (w *Workspace) Remove(relPath string) error {
	if err := w.fs.Remove(w.fsPath(relPath)); err != nil {
		return err
	}

	dir := path.Dir(strings.ReplaceAll(relPath, "\\", "/"))
	for dir != "." && dir != "/" && dir != "" {
		entries, err := w.fs.ReadDir(w.fsPath(dir))
		if err != nil || len(entries) > 0 {
			return nil
		}
		if err := w.fs.Remove(w.fsPath(dir)); err != nil {
			return nil
		}
		dir = path.Dir(dir)
	}
	return nil
}
