//go:build !unix

package worktree

import "io/fs"

// fillPlatformStat is a no-op off unix: dev/inode/uid/gid stay zero, and
// CreatedAt keeps the ModifiedAt value StatFile already set.
func fillPlatformStat(st *Stat, info fs.FileInfo) {}
