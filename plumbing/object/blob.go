// Package object implements the typed layer above raw plumbing.Object
// payloads: blobs, trees, commits and metadata objects, plus the tree-diff
// and merge-base algorithms that operate on them.
package object

import (
	"bytes"
	"errors"
	"io"

	"github.com/ash-vcs/ash/plumbing"
)

// ErrUnsupportedObject is returned when Decode is handed a raw object whose
// kind does not match the receiver.
var ErrUnsupportedObject = errors.New("unsupported object type")

// Object is implemented by every decoded object kind.
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	// Bytes returns the canonical payload the store hashes and persists
	// (spec I1): "tree <oid>\n"... for a Commit, sorted entries for a
	// Tree, raw content for a Blob.
	Bytes() []byte
}

// Blob is opaque file content (spec §3 "Blob").
type Blob struct {
	Hash plumbing.Hash
	Size int64

	data []byte
}

// ID returns the blob's OID.
func (b *Blob) ID() plumbing.Hash { return b.Hash }

// Type always returns plumbing.BlobObject.
func (b *Blob) Type() plumbing.ObjectType { return plumbing.BlobObject }

// NewBlob builds a Blob directly from content, without going through the
// object store; its Hash is left unset until the store's Store computes it.
func NewBlob(data []byte) *Blob {
	return &Blob{Size: int64(len(data)), data: data}
}

// Decode populates b from a raw (kind, oid, payload) tuple read from the
// object store.
func (b *Blob) Decode(hash plumbing.Hash, kind plumbing.ObjectType, payload []byte) error {
	if kind != plumbing.BlobObject {
		return ErrUnsupportedObject
	}

	b.Hash = hash
	b.Size = int64(len(payload))
	b.data = payload
	return nil
}

// Bytes returns the blob's payload, the canonical form hashed under I1.
func (b *Blob) Bytes() []byte { return b.data }

// Reader returns a stream over the blob's content.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
