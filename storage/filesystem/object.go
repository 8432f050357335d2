// Package filesystem implements the object store (C2) and reference store
// (C3) on top of a billy.Filesystem, writing the same "objects/<xx>/<38
// hex>" loose-object layout the teacher's dotgit package uses.
package filesystem

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/ash-vcs/ash/cache"
	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage"
	"github.com/ash-vcs/ash/utils/ioutil"
)

const objectsDir = "objects"

// ObjectStorage is the loose-object C2 implementation.
type ObjectStorage struct {
	fs     billy.Filesystem
	hasher *plumbing.Hasher
	cache  *cache.Objects
}

// NewObjectStorage returns an ObjectStorage rooted at root/objects, backed
// by fs and memoizing decoded objects in the given cache (nil disables
// memoization).
func NewObjectStorage(fs billy.Filesystem, c *cache.Objects) *ObjectStorage {
	return &ObjectStorage{fs: fs, hasher: plumbing.NewHasher(), cache: c}
}

func objectPath(oid plumbing.Hash) string {
	hex := oid.String()
	return objectsDir + "/" + hex[:2] + "/" + hex[2:]
}

// Store serialises obj, computing its OID and recording it in obj's Hash
// field; a second Store of the same content is a no-op (spec §4.2,
// boundary scenario 2).
func (s *ObjectStorage) Store(obj object.Object) (plumbing.Hash, error) {
	payload := obj.Bytes()
	oid := s.hasher.Compute(obj.Type(), payload)
	switch o := obj.(type) {
	case *object.Blob:
		o.Hash = oid
	case *object.Tree:
		o.Hash = oid
	case *object.Commit:
		o.Hash = oid
	case *object.Metadata:
		o.Hash = oid
	}

	ok, err := s.Exists(oid)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if ok {
		return oid, nil
	}

	var raw bytes.Buffer
	fmt.Fprintf(&raw, "%s %d\x00", obj.Type(), len(payload))
	raw.Write(payload)

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(raw.Bytes()); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	path := objectPath(oid)
	dir := s.fs.Join(objectsDir, oid.String()[:2])
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return plumbing.ZeroHash, err
	}

	tmp, err := s.fs.TempFile(dir, "obj-")
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		tmp.Close()
		s.fs.Remove(tmp.Name())
		return plumbing.ZeroHash, err
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmp.Name())
		return plumbing.ZeroHash, err
	}
	if err := s.fs.Rename(tmp.Name(), path); err != nil {
		s.fs.Remove(tmp.Name())
		return plumbing.ZeroHash, err
	}

	if s.cache != nil {
		s.cache.Add(oid, obj, int64(len(payload)))
	}
	return oid, nil
}

// Load decompresses the object at oid, parses its header, and dispatches
// to a kind-specific decoder (spec §4.2).
func (s *ObjectStorage) Load(oid plumbing.Hash) (_ object.Object, err error) {
	if s.cache != nil {
		if obj, ok := s.cache.Get(oid); ok {
			return obj, nil
		}
	}

	f, err := s.fs.Open(objectPath(oid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	zr, zerr := zlib.NewReader(f)
	if zerr != nil {
		return nil, storage.ErrCorrupt
	}
	defer ioutil.CheckClose(zr, &err)

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, storage.ErrCorrupt
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return nil, storage.ErrCorrupt
	}

	header := string(raw[:nul])
	sp := strings.IndexByte(header, ' ')
	if sp < 0 {
		return nil, storage.ErrCorrupt
	}

	kind, err := plumbing.ParseObjectType(header[:sp])
	if err != nil {
		return nil, storage.ErrCorrupt
	}

	payload := raw[nul+1:]
	length, err := parseLength(header[sp+1:])
	if err != nil || length != len(payload) {
		return nil, storage.ErrCorrupt
	}

	obj, err := object.Decode(oid, kind, payload)
	if err != nil {
		return nil, storage.ErrCorrupt
	}

	if s.cache != nil {
		s.cache.Add(oid, obj, int64(len(payload)))
	}
	return obj, nil
}

func parseLength(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.New("empty length")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("non-digit in length")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// Exists reports whether oid has a persisted object.
func (s *ObjectStorage) Exists(oid plumbing.Hash) (bool, error) {
	_, err := s.fs.Stat(objectPath(oid))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ShortName returns the shortest prefix of oid, at least k characters,
// that is unique among stored objects.
func (s *ObjectStorage) ShortName(oid plumbing.Hash, k int) (string, error) {
	if k < plumbing.MinPrefixSize {
		k = plumbing.MinPrefixSize
	}
	full := oid.String()
	for n := k; n <= plumbing.HexSize; n++ {
		prefix := full[:n]
		matches, err := s.matchPrefix(prefix)
		if err != nil {
			return "", err
		}
		if len(matches) == 1 {
			return prefix, nil
		}
	}
	return full, nil
}

// Resolve expands a >=4 character hex prefix to the unique matching OID.
func (s *ObjectStorage) Resolve(prefix string) (plumbing.Hash, error) {
	if !plumbing.IsValidHexPrefix(prefix) {
		return plumbing.ZeroHash, storage.ErrNotFound
	}

	matches, err := s.matchPrefix(prefix)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	switch len(matches) {
	case 0:
		return plumbing.ZeroHash, storage.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return plumbing.ZeroHash, &storage.AmbiguousError{Prefix: prefix, Candidates: matches}
	}
}

// matchPrefix scans the two-level objects/<xx>/<rest> fan-out directly,
// matching the teacher's loose-object layout (no secondary index).
func (s *ObjectStorage) matchPrefix(prefix string) ([]plumbing.Hash, error) {
	if len(prefix) < 2 {
		return s.matchShortPrefix(prefix)
	}

	dir := s.fs.Join(objectsDir, prefix[:2])
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	rest := prefix[2:]
	var out []plumbing.Hash
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), rest) {
			h, err := plumbing.FromHex(prefix[:2] + e.Name())
			if err != nil {
				continue
			}
			out = append(out, h)
		}
	}
	sort.Sort(plumbing.HashSlice(out))
	return out, nil
}

func (s *ObjectStorage) matchShortPrefix(prefix string) ([]plumbing.Hash, error) {
	dirs, err := s.fs.ReadDir(objectsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []plumbing.Hash
	for _, d := range dirs {
		if !strings.HasPrefix(d.Name(), prefix) {
			continue
		}
		entries, err := s.fs.ReadDir(s.fs.Join(objectsDir, d.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			h, err := plumbing.FromHex(d.Name() + e.Name())
			if err != nil {
				continue
			}
			out = append(out, h)
		}
	}
	sort.Sort(plumbing.HashSlice(out))
	return out, nil
}

// TreeDiff re-exports object.Diff, the C7 algorithm, against this store.
func (s *ObjectStorage) TreeDiff(a, b plumbing.Hash, filter pathspec.Filter) ([]object.Change, error) {
	return object.Diff(s, a, b, filter)
}
