package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"provizor/internal/models"
)

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.db")

	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.FileExists(t, path)
}

func TestMigrateSeedsDefaultUsers(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "profiles.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("admin")))
	assert.NotEmpty(t, admin.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	var nix models.User
	require.NoError(t, db.Where("username = ?", "nix").First(&nix).Error)
	assert.False(t, nix.IsAdmin)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "profiles.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestUserDefaults(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "profiles.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	user := models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	var got models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&got).Error)
	assert.Equal(t, "example.local", got.GlobalDomain)
	assert.Equal(t, "Etc/UTC", got.GlobalTimezone)
	assert.Equal(t, "generate", got.PasswordMode)
}
