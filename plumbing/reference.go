package plumbing

import "strings"

// ReferenceName is a reference path, e.g. "HEAD" or "refs/heads/master".
type ReferenceName string

// Well-known reference names (spec §6 repository layout).
const (
	HEAD             ReferenceName = "HEAD"
	FetchHead        ReferenceName = "FETCH_HEAD"
	OrigHead         ReferenceName = "ORIG_HEAD"
	MergeHead        ReferenceName = "MERGE_HEAD"
	CherryPickHead   ReferenceName = "CHERRY_PICK_HEAD"
	RevertHead       ReferenceName = "REVERT_HEAD"
	refHeadsPrefix                 = "refs/heads/"
	refTagsPrefix                  = "refs/tags/"
)

// String returns n as a plain string.
func (n ReferenceName) String() string {
	return string(n)
}

// IsBranch reports whether n lives under refs/heads/.
func (n ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(n), refHeadsPrefix)
}

// IsTag reports whether n lives under refs/tags/.
func (n ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(n), refTagsPrefix)
}

// Short strips the refs/heads/ or refs/tags/ prefix for display, matching
// the teacher's short_name convention (kept from the original's
// `checkout.rs` use of `repo.refs.short_name(path)`).
func (n ReferenceName) Short() string {
	s := string(n)
	s = strings.TrimPrefix(s, refHeadsPrefix)
	s = strings.TrimPrefix(s, refTagsPrefix)
	return s
}

// NewBranchReferenceName builds the reference name for a local branch.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadsPrefix + name)
}

// ReferenceType distinguishes how a Reference resolves.
type ReferenceType int8

const (
	// InvalidReference is the zero value.
	InvalidReference ReferenceType = iota
	// HashReference resolves directly to an OID.
	HashReference
	// SymbolicReference resolves by following another reference name.
	SymbolicReference
)

// Reference is either Symbolic (points at another reference name) or
// Direct/Hash (points straight at an OID). Spec §3 "Reference".
type Reference struct {
	typ    ReferenceType
	name   ReferenceName
	target ReferenceName
	hash   Hash
}

// NewHashReference builds a direct reference named n pointing at h.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{typ: HashReference, name: n, hash: h}
}

// NewSymbolicReference builds a symbolic reference named n pointing at target.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{typ: SymbolicReference, name: n, target: target}
}

// Type reports whether r is symbolic or direct.
func (r *Reference) Type() ReferenceType { return r.typ }

// Name returns the reference's own name.
func (r *Reference) Name() ReferenceName { return r.name }

// Target returns the name r points at; only meaningful when Type is Symbolic.
func (r *Reference) Target() ReferenceName { return r.target }

// Hash returns the OID r points at; only meaningful when Type is Hash.
func (r *Reference) Hash() Hash { return r.hash }

// IsBranch reports whether r's own name lives under refs/heads/.
func (r *Reference) IsBranch() bool { return r.name.IsBranch() }

// Strings returns r's name and its on-disk value ("ref: <path>" or "<oid>",
// without the trailing newline).
func (r *Reference) Strings() [2]string {
	switch r.typ {
	case SymbolicReference:
		return [2]string{string(r.name), "ref: " + string(r.target)}
	default:
		return [2]string{string(r.name), r.hash.String()}
	}
}
