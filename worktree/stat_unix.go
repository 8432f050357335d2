//go:build unix

package worktree

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// fillPlatformStat extracts dev/inode/uid/gid from the raw syscall stat,
// matching the teacher's optional fillSystemInfo hook.
func fillPlatformStat(st *Stat, info fs.FileInfo) {
	sys, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		return
	}
	st.Dev = uint32(sys.Dev)
	st.Inode = uint32(sys.Ino)
	st.UID = sys.Uid
	st.GID = sys.Gid
	st.CreatedAt = Timespec{Sec: int64(sys.Ctim.Sec), Nsec: int64(sys.Ctim.Nsec)}
}
