// Package filemode defines the modes a tree entry may carry, matching the
// octal encodings used in the wire format of trees and the index (spec §3).
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// A FileMode represents the kind and permission bits of a tree entry or
// index entry, encoded the way git encodes them: an octal number whose
// high bits select the entry's type.
type FileMode uint32

const (
	// Empty is the zero mode; any tree/index entry carrying it is malformed.
	Empty FileMode = 0
	// Dir is a sub-tree.
	Dir FileMode = 0o040000
	// Regular is a non-executable file.
	Regular FileMode = 0o100644
	// Deprecated is an old, no-longer-written regular file mode that must
	// still be accepted on read.
	Deprecated FileMode = 0o100664
	// Executable is an executable file.
	Executable FileMode = 0o100755
	// Symlink is a symbolic link, stored as a blob holding the link target.
	Symlink FileMode = 0o120000
	// Submodule is a gitlink to another repository's commit.
	Submodule FileMode = 0o160000
)

// New parses the octal string representation used in tree/index wire
// formats ("40000", "100644", ...).
func New(s string) (FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("malformed file mode %q: %w", s, err)
	}
	return FileMode(n), nil
}

// NewFromOSFileMode converts a standard library os.FileMode into the
// closest FileMode, following the same rules git itself applies when
// adding a path to the index.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	if m.IsDir() {
		return Dir, nil
	}

	switch {
	case m&os.ModeSymlink != 0:
		return Symlink, nil
	case m&os.ModeNamedPipe != 0,
		m&os.ModeSocket != 0,
		m&os.ModeDevice != 0,
		m&os.ModeCharDevice != 0,
		m&os.ModeTemporary != 0:
		return Empty, fmt.Errorf("no equivalent file mode for %s", m)
	}

	if isExecutable(m) {
		return Executable, nil
	}
	return Regular, nil
}

func isExecutable(m os.FileMode) bool {
	return m.Perm()&0o111 != 0
}

// Bytes returns the little-endian 32-bit encoding used by some wire
// representations that store a raw mode word rather than its octal text.
func (m FileMode) Bytes() []byte {
	return []byte{
		byte(m),
		byte(m >> 8),
		byte(m >> 16),
		byte(m >> 24),
	}
}

// String renders m as the zero-padded 7-digit octal form git itself prints.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// IsMalformed reports whether m is not one of the known modes.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// IsRegular reports whether m is an ordinary (non-executable) file, the
// only mode pair git's `are_equivalent` smooths over (spec §4.7 "100644 vs
// 100755 differ").
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Deprecated
}

// IsFile reports whether m is any kind of in-tree file content: a regular
// file, an executable file, or a symlink.
func (m FileMode) IsFile() bool {
	switch m {
	case Regular, Deprecated, Executable, Symlink:
		return true
	default:
		return false
	}
}

// IsDirectoryType reports whether m's type nibble is "directory" — spec
// §4.7's mode-equivalence rule groups Dir together with any other mode
// whose type nibble matches it (there is exactly one: Dir itself, since
// Submodule carries its own distinct nibble).
func (m FileMode) IsDirectoryType() bool {
	return m == Dir
}

// ToOSFileMode converts m back to the closest os.FileMode.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir:
		return os.ModePerm | os.ModeDir, nil
	case Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Regular, Deprecated:
		return 0o644, nil
	case Executable:
		return 0o755, nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	default:
		return 0, fmt.Errorf("malformed file mode %s has no os.FileMode equivalent", m)
	}
}
