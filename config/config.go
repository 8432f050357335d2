// Package config supplies the commit author/committer identity the data
// model requires but spec.md leaves unsourced (SPEC_FULL.md §10):
// repository-local ".ash/config", merged under the user's global
// "$HOME/.ashconfig".
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"dario.cat/mergo"

	formatcfg "github.com/ash-vcs/ash/plumbing/format/config"
)

// ErrNoIdentity is returned when neither repository-local nor global
// config, nor an explicit override, supplies a commit identity.
var ErrNoIdentity = errors.New("config: no identity configured; set user.name and user.email")

// Config is the subset of git's config surface this module's commit
// construction and repository bookkeeping need.
type Config struct {
	User struct {
		Name  string
		Email string
	}
	Core struct {
		Bare bool
	}
}

// path of the repository-local config file, relative to the repository's
// ".ash" metadata directory.
const path = "config"

// Load reads the repository-local config from fs (rooted at the ".ash"
// directory) and merges the global config underneath it, so repo-local
// values win.
func Load(fs billy.Filesystem) (*Config, error) {
	cfg := &Config{}

	if f, err := fs.Open(path); err == nil {
		defer f.Close()
		if err := formatcfg.Decode(f, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	global, err := Global()
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(cfg, global); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Global reads "$HOME/.ashconfig"; a missing file yields an empty, valid Config.
func Global() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	f, err := os.Open(filepath.Join(home, ".ashconfig"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := formatcfg.Decode(f, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Identity is a resolved author/committer name+email pair.
type Identity struct {
	Name  string
	Email string
}

// ResolveIdentity implements spec §10's resolution order: an explicit
// override (if the caller supplied one) beats repo-local user.*, which
// beats global user.*; if nothing supplies both fields, ErrNoIdentity.
func ResolveIdentity(cfg *Config, override *Identity) (Identity, error) {
	if override != nil && override.Name != "" && override.Email != "" {
		return *override, nil
	}
	if cfg != nil && cfg.User.Name != "" && cfg.User.Email != "" {
		return Identity{Name: cfg.User.Name, Email: cfg.User.Email}, nil
	}
	return Identity{}, ErrNoIdentity
}
