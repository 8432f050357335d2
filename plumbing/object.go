package plumbing

import "errors"

// Sentinel errors for object identity and kinds. Component specific error
// kinds (Corrupt, Ambiguous, Conflict, ...) live alongside the component
// that raises them; the object store reports a missing object as
// storage.ErrNotFound, not ErrObjectNotFound. ErrInvalidType is returned by
// ParseObjectType.
var (
	// ErrObjectNotFound is returned when an OID has no corresponding object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidType is returned when an object's header names an unknown kind.
	ErrInvalidType = errors.New("invalid object type")
)

// ObjectType is the closed set of kinds an Object may have (spec §3).
type ObjectType int8

const (
	// InvalidObject is the zero value and never a valid persisted kind.
	InvalidObject ObjectType = iota
	// BlobObject is opaque file content.
	BlobObject
	// TreeObject is an ordered name -> (mode, oid) mapping.
	TreeObject
	// CommitObject is a tree snapshot plus history and identity headers.
	CommitObject
	// MetadataObject is an opaque, structurally-blob object with a distinct
	// kind tag (spec §3 "Metadata objects").
	MetadataObject
)

// String returns the wire representation of t, as written in the object
// header "<kind> <len>\0".
func (t ObjectType) String() string {
	switch t {
	case BlobObject:
		return "blob"
	case TreeObject:
		return "tree"
	case CommitObject:
		return "commit"
	case MetadataObject:
		return "metadata"
	default:
		return "invalid"
	}
}

// Bytes returns the byte representation of t, as used in object headers.
func (t ObjectType) Bytes() []byte {
	return []byte(t.String())
}

// Valid reports whether t is one of the four persisted kinds.
func (t ObjectType) Valid() bool {
	return t >= BlobObject && t <= MetadataObject
}

// ParseObjectType parses the header token of an object back into its kind.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "blob":
		return BlobObject, nil
	case "tree":
		return TreeObject, nil
	case "commit":
		return CommitObject, nil
	case "metadata":
		return MetadataObject, nil
	default:
		return InvalidObject, ErrInvalidType
	}
}
