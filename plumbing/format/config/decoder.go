// Package config decodes the ini-style syntax of ".ash/config" and
// "$HOME/.ashconfig" into a caller-supplied struct, via the same gcfg
// library the teacher depends on for git's own config format.
package config

import (
	"io"

	"github.com/go-git/gcfg/v2"
)

// Decode reads the whole ini document from r into dst, whose fields carry
// `gcfg:"section"`/`gcfg:"key"` struct tags.
func Decode(r io.Reader, dst interface{}) error {
	return gcfg.ReadInto(dst, r)
}
