package tenant

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

func TestEnsureKeypairGeneratesOnce(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	kp, err := store.EnsureKeypair("acme")
	require.NoError(t, err)
	assert.FileExists(t, kp.PrivateKeyPath)
	assert.FileExists(t, kp.PublicKeyPath)
	assert.True(t, strings.HasPrefix(kp.PublicKey, "ssh-ed25519 "))

	again, err := store.EnsureKeypair("acme")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, again.PublicKey)
}

func TestEnsureKeypairRoundTrips(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	kp, err := store.EnsureKeypair("acme")
	require.NoError(t, err)

	// The private key must parse as a usable OpenSSH signer and match the
	// published public key.
	pemData, err := os.ReadFile(kp.PrivateKeyPath)
	require.NoError(t, err)
	signer, err := ssh.ParsePrivateKey(pemData)
	require.NoError(t, err)

	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(kp.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, pub.Marshal(), signer.PublicKey().Marshal())
}

func TestEnsureKeypairRegeneratesWhenPrivateKeyMissing(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	kp, err := store.EnsureKeypair("acme")
	require.NoError(t, err)
	require.NoError(t, os.Remove(kp.PrivateKeyPath))

	again, err := store.EnsureKeypair("acme")
	require.NoError(t, err)
	assert.FileExists(t, again.PrivateKeyPath)
	assert.NotEqual(t, kp.PublicKey, again.PublicKey)
}

func TestEnsurePasswordIsStable(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	pw, err := store.EnsurePassword("acme")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(pw), 16)

	again, err := store.EnsurePassword("acme")
	require.NoError(t, err)
	assert.Equal(t, pw, again)

	other, err := store.EnsurePassword("globex")
	require.NoError(t, err)
	assert.NotEqual(t, pw, other)
}

func TestTenantsAreIsolated(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, zap.NewNop())

	a, err := store.EnsureKeypair("a")
	require.NoError(t, err)
	b, err := store.EnsureKeypair("b")
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKey, b.PublicKey)
	assert.NotEqual(t, store.Dir("a"), store.Dir("b"))
}
