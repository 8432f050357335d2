package config_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/config"
)

func TestLoadWithoutLocalConfigFallsBackToEmpty(t *testing.T) {
	fs := memfs.New()
	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Empty(t, cfg.User.Name)
	assert.Empty(t, cfg.User.Email)
}

func TestLoadReadsRepositoryLocalConfig(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create("config")
	require.NoError(t, err)
	_, err = f.Write([]byte("[user]\n\tname = Ash\n\temail = ash@example.com\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "Ash", cfg.User.Name)
	assert.Equal(t, "ash@example.com", cfg.User.Email)
}

func TestGlobalWithoutConfigFileIsEmptyNotError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Global()
	require.NoError(t, err)
	assert.Empty(t, cfg.User.Name)
}

func TestResolveIdentityPrefersExplicitOverride(t *testing.T) {
	cfg := &config.Config{}
	cfg.User.Name = "Repo User"
	cfg.User.Email = "repo@example.com"

	override := &config.Identity{Name: "Override", Email: "override@example.com"}

	got, err := config.ResolveIdentity(cfg, override)
	require.NoError(t, err)
	assert.Equal(t, "Override", got.Name)
	assert.Equal(t, "override@example.com", got.Email)
}

func TestResolveIdentityFallsBackToConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.User.Name = "Repo User"
	cfg.User.Email = "repo@example.com"

	got, err := config.ResolveIdentity(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Repo User", got.Name)
}

func TestResolveIdentityErrorsWithoutAnySource(t *testing.T) {
	_, err := config.ResolveIdentity(&config.Config{}, nil)
	assert.ErrorIs(t, err, config.ErrNoIdentity)
}

func TestResolveIdentityRejectsPartialOverride(t *testing.T) {
	cfg := &config.Config{}
	cfg.User.Name = "Repo User"
	cfg.User.Email = "repo@example.com"

	got, err := config.ResolveIdentity(cfg, &config.Identity{Name: "Only Name"})
	require.NoError(t, err)
	assert.Equal(t, "Repo User", got.Name, "a partial override must not mask a complete config identity")
}
