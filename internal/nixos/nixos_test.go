package nixos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provizor/internal/runner/runnertest"
)

func writeFlake(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flake.nix"), []byte("{}\n"), 0o644))
	return dir
}

func TestInstallCommandLine(t *testing.T) {
	fake := runnertest.New()
	inst := NewInstaller(fake, zap.NewNop())
	dir := writeFlake(t)

	err := inst.Install(context.Background(), InstallInput{
		FlakeDir:       dir,
		FlakeAttr:      "db-01",
		Target:         "root@192.168.10.30",
		PrivateKeyPath: "/creds/acme/id_ed25519",
	})
	require.NoError(t, err)

	lines := fake.CommandLines()
	require.Len(t, lines, 1)
	assert.Equal(t,
		"nixos-anywhere --flake "+dir+"#db-01 -i /creds/acme/id_ed25519 "+
			"--ssh-option StrictHostKeyChecking=no --ssh-option UserKnownHostsFile=/dev/null "+
			"root@192.168.10.30",
		lines[0])
}

func TestInstallMissingFlake(t *testing.T) {
	fake := runnertest.New()
	inst := NewInstaller(fake, zap.NewNop())

	err := inst.Install(context.Background(), InstallInput{
		FlakeDir:  t.TempDir(),
		FlakeAttr: "db-01",
		Target:    "root@host",
	})
	assert.ErrorIs(t, err, ErrNoFlake)
	assert.Empty(t, fake.Calls(), "nothing runs without a flake")
}

func TestInstallDebugFlag(t *testing.T) {
	fake := runnertest.New()
	inst := NewInstaller(fake, zap.NewNop())
	inst.Debug = true
	dir := writeFlake(t)

	err := inst.Install(context.Background(), InstallInput{
		FlakeDir: dir, FlakeAttr: "db-01", Target: "root@host", PrivateKeyPath: "k",
	})
	require.NoError(t, err)
	assert.Contains(t, fake.CommandLines()[0], "--debug root@host")
}

func TestInstallPropagatesFailure(t *testing.T) {
	fake := runnertest.New()
	fake.Script("nixos-anywhere", runnertest.Response{Err: errors.New("kexec failed")})
	inst := NewInstaller(fake, zap.NewNop())
	dir := writeFlake(t)

	err := inst.Install(context.Background(), InstallInput{
		FlakeDir: dir, FlakeAttr: "db-01", Target: "root@host", PrivateKeyPath: "k",
	})
	assert.ErrorContains(t, err, "kexec failed")
	assert.NotErrorIs(t, err, ErrNoFlake)
}
