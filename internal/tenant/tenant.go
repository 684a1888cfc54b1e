// Package tenant manages per-tenant credentials: an ed25519 SSH keypair
// and a persistent generated password, both stored under a tenants root
// directory and reused across runs.
package tenant

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const (
	privateKeyFile = "id_ed25519"
	publicKeyFile  = "id_ed25519.pub"
	passwordFile   = "password.txt"
)

// Keypair points at a tenant's SSH key material on disk.
type Keypair struct {
	PrivateKeyPath string
	PublicKeyPath  string
	// PublicKey is the authorized_keys line, without trailing newline.
	PublicKey string
}

// Store reads and writes tenant credentials under a root directory.
type Store struct {
	root string
	log  *zap.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: dir, log: log}
}

// Dir returns the directory holding a tenant's credentials.
func (s *Store) Dir(tenant string) string {
	return filepath.Join(s.root, tenant)
}

// EnsureKeypair returns the tenant's SSH keypair, generating a new
// ed25519 pair on first use.
func (s *Store) EnsureKeypair(tenant string) (Keypair, error) {
	dir := s.Dir(tenant)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Keypair{}, fmt.Errorf("failed to create tenant dir: %w", err)
	}

	kp := Keypair{
		PrivateKeyPath: filepath.Join(dir, privateKeyFile),
		PublicKeyPath:  filepath.Join(dir, publicKeyFile),
	}

	pub, err := os.ReadFile(kp.PublicKeyPath)
	if err == nil {
		if _, statErr := os.Stat(kp.PrivateKeyPath); statErr == nil {
			kp.PublicKey = strings.TrimSpace(string(pub))
			return kp, nil
		}
	}

	s.log.Info("generating ssh keypair for tenant", zap.String("tenant", tenant))

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(privKey, tenant)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(block)

	sshPub, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to build ssh public key: %w", err)
	}
	authorized := ssh.MarshalAuthorizedKey(sshPub)

	if err := os.WriteFile(kp.PrivateKeyPath, privPEM, 0o600); err != nil {
		return Keypair{}, fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(kp.PublicKeyPath, authorized, 0o644); err != nil { // #nosec G306
		return Keypair{}, fmt.Errorf("failed to write public key: %w", err)
	}

	kp.PublicKey = strings.TrimSpace(string(authorized))
	return kp, nil
}

// EnsurePassword returns the tenant's password, generating and persisting
// one on first use.
func (s *Store) EnsurePassword(tenant string) (string, error) {
	dir := s.Dir(tenant)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create tenant dir: %w", err)
	}

	path := filepath.Join(dir, passwordFile)
	if data, err := os.ReadFile(path); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	password, err := generatePassword(12)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(password+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write password: %w", err)
	}

	s.log.Info("generated tenant password", zap.String("tenant", tenant), zap.String("path", path))
	return password, nil
}

// generatePassword returns a URL-safe random token from n bytes of
// entropy.
func generatePassword(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
