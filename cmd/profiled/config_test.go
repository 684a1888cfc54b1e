package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PROFILED_AUTH_JWT_SECRET", "test-secret")

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "./data/profiled.db", cfg.Database.Path)
	assert.Equal(t, "24h", cfg.Auth.TokenTTL)
	assert.Equal(t, "./profiles", cfg.Profiles.RepoPath)
	assert.Equal(t, "./services.json", cfg.Profiles.CatalogPath)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	_, err := loadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROFILED_AUTH_JWT_SECRET")
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiled.yaml")
	content := `
server:
  addr: ":9100"
auth:
  jwt_secret: file-secret
  token_ttl: 1h
profiles:
  repo_path: /srv/profiles
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "1h", cfg.Auth.TokenTTL)
	assert.Equal(t, "/srv/profiles", cfg.Profiles.RepoPath)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiled.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: file-secret\n"), 0o644))

	t.Setenv("PROFILED_SERVER_ADDR", ":9200")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Server.Addr)
}
