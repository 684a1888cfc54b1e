// Package database opens the profile service's SQLite store and seeds the
// default accounts.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"provizor/internal/models"
)

// Config contains database connection options.
type Config struct {
	Path string // SQLite database path; empty or ":memory:" for in-memory
	DSN  string // Optional DSN override
}

// Open initialises a gorm.DB for the given configuration.
func Open(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		path := strings.TrimSpace(cfg.Path)
		switch {
		case path == "", strings.EqualFold(path, ":memory:"):
			dsn = "file::memory:?cache=shared&_foreign_keys=1"
		default:
			if err := ensureDir(path); err != nil {
				return nil, err
			}
			dsn = fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL", filepath.ToSlash(path))
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := enableForeignKeys(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema and seeds the default accounts. The seed users
// let operators log in before any registration has happened.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := seedUsers(db); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

type seedUser struct {
	username string
	email    string
	password string
	admin    bool
}

func seedUsers(db *gorm.DB) error {
	seeds := []seedUser{
		{username: "admin", email: "admin@example.com", password: "admin", admin: true},
		{username: "nix", email: "nix@nix", password: "nix"},
		{username: "docker", email: "docker@docker", password: "docker"},
	}
	for _, s := range seeds {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", s.username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := models.User{
			Username: s.username,
			Email:    s.email,
			Password: string(hash),
			IsAdmin:  s.admin,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func enableForeignKeys(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil && err != sql.ErrConnDone {
		return err
	}
	return nil
}
