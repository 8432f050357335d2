package filesystem

import (
	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/cache"
)

// Storage bundles the loose-object store and the reference namespace over
// a single billy.Filesystem rooted at the repository's ".ash" directory.
type Storage struct {
	ObjectStorage
	ReferenceStorage
}

// NewStorage returns a Storage backed by fs, memoizing decoded objects in
// a cache sized maxCacheSize bytes (<=0 uses cache.DefaultMaxSize).
func NewStorage(fs billy.Filesystem, maxCacheSize int64) *Storage {
	return &Storage{
		ObjectStorage:    *NewObjectStorage(fs, cache.NewObjects(maxCacheSize)),
		ReferenceStorage: *NewReferenceStorage(fs),
	}
}
