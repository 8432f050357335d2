// Package lock implements atomic single-writer file replacement via a
// sibling ".lock" file plus rename (spec C1 "Lockfile"), grounded on the
// same acquire/write/commit/rollback discipline as the teacher's
// TempFile-then-Rename pattern for loose objects and packed-refs.
package lock

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/internal/trace"
)

// Errors distinguishing the ways acquiring or using a lock can fail
// (spec §4.1).
var (
	// ErrMissingParent is returned when the target's parent directory does
	// not exist and could not be created.
	ErrMissingParent = errors.New("lock: missing parent directory")
	// ErrPermissionDenied is returned when the filesystem refuses the
	// lockfile create or the parent directory create.
	ErrPermissionDenied = errors.New("lock: permission denied")
	// ErrLocked is returned when another holder already owns the lock,
	// stale or concurrent.
	ErrLocked = errors.New("lock: already locked")
	// ErrNotHolding is returned by Write/Commit/Rollback when no lock is
	// currently held — calling any of them without a prior successful Hold
	// is a caller bug.
	ErrNotHolding = errors.New("lock: not holding lock")
)

// File is the sibling-lockfile-plus-rename discipline for path P: acquiring
// creates "P.lock" exclusively, writes go to that handle, Commit renames it
// onto P, Rollback removes it. The holder must call Commit or Rollback
// exactly once.
type File struct {
	fs       billy.Filesystem
	path     string
	lockPath string
	handle   billy.File
}

// New returns a File targeting path on fs. Hold must be called before Write
// or Commit.
func New(bfs billy.Filesystem, path string) *File {
	return &File{fs: bfs, path: path, lockPath: path + ".lock"}
}

// Hold acquires the lock, creating the parent directory if necessary.
// Calling Hold while already holding is a no-op success.
func (f *File) Hold() error {
	if f.handle != nil {
		return nil
	}

	dir := filepath.Dir(f.lockPath)
	if dir != "." {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return ErrPermissionDenied
			}
			return ErrMissingParent
		}
	}

	handle, err := f.fs.OpenFile(f.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			trace.Lock.Printf("lock: %s already held", f.lockPath)
			return ErrLocked
		case errors.Is(err, fs.ErrPermission):
			return ErrPermissionDenied
		default:
			return err
		}
	}

	trace.Lock.Printf("lock: acquired %s", f.lockPath)
	f.handle = handle
	return nil
}

// Write forwards data to the held lock handle.
func (f *File) Write(data []byte) (int, error) {
	if f.handle == nil {
		return 0, ErrNotHolding
	}
	return f.handle.Write(data)
}

// Commit closes the lock handle and renames it onto the target path,
// making the write durable and visible.
func (f *File) Commit() error {
	if f.handle == nil {
		return ErrNotHolding
	}
	if err := f.handle.Close(); err != nil {
		return err
	}
	f.handle = nil
	trace.Lock.Printf("lock: committing %s -> %s", f.lockPath, f.path)
	return f.fs.Rename(f.lockPath, f.path)
}

// Rollback closes (if open) and removes the lock file; removing a file
// that is already gone is not an error.
func (f *File) Rollback() error {
	if f.handle != nil {
		_ = f.handle.Close()
		f.handle = nil
	}

	if err := f.fs.Remove(f.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	trace.Lock.Printf("lock: rolled back %s", f.lockPath)
	return nil
}
