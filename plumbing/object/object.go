package object

import "github.com/ash-vcs/ash/plumbing"

// Decode dispatches a raw (oid, kind, payload) tuple, as handed back by the
// object store's load operation, to the matching typed Object.
func Decode(hash plumbing.Hash, kind plumbing.ObjectType, payload []byte) (Object, error) {
	switch kind {
	case plumbing.BlobObject:
		b := &Blob{}
		if err := b.Decode(hash, kind, payload); err != nil {
			return nil, err
		}
		return b, nil
	case plumbing.TreeObject:
		t := &Tree{}
		if err := t.Decode(hash, kind, payload); err != nil {
			return nil, err
		}
		return t, nil
	case plumbing.CommitObject:
		c := &Commit{}
		if err := c.Decode(hash, kind, payload); err != nil {
			return nil, err
		}
		return c, nil
	case plumbing.MetadataObject:
		m := &Metadata{}
		if err := m.Decode(hash, kind, payload); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrUnsupportedObject
	}
}
