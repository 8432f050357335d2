package object

import "github.com/ash-vcs/ash/plumbing"

// Metadata is a structurally-blob object carrying a distinct kind tag
// (spec §3 "Metadata objects"). The core stores and retrieves it verbatim;
// it never interprets the payload.
type Metadata struct {
	Hash plumbing.Hash
	data []byte
}

// ID returns the metadata object's OID.
func (m *Metadata) ID() plumbing.Hash { return m.Hash }

// Type always returns plumbing.MetadataObject.
func (m *Metadata) Type() plumbing.ObjectType { return plumbing.MetadataObject }

// NewMetadata builds a Metadata object from raw bytes, leaving Hash unset
// until it is stored.
func NewMetadata(data []byte) *Metadata {
	return &Metadata{data: data}
}

// Bytes returns the raw payload.
func (m *Metadata) Bytes() []byte { return m.data }

// Decode populates m from a raw (kind, oid, payload) tuple.
func (m *Metadata) Decode(hash plumbing.Hash, kind plumbing.ObjectType, payload []byte) error {
	if kind != plumbing.MetadataObject {
		return ErrUnsupportedObject
	}
	m.Hash = hash
	m.data = payload
	return nil
}
