// Package nixos installs NixOS onto a booted host with nixos-anywhere.
package nixos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"provizor/internal/runner"
)

// ErrNoFlake signals that no flake is available for the host, so callers
// should fall back to configuration management over SSH.
var ErrNoFlake = errors.New("no flake.nix found for host")

// InstallInput describes one nixos-anywhere invocation.
type InstallInput struct {
	// FlakeDir is the directory expected to contain flake.nix.
	FlakeDir string
	// FlakeAttr is the nixosConfigurations attribute, usually the host name.
	FlakeAttr string
	// Target is the SSH destination, e.g. "root@192.168.10.20".
	Target string
	// PrivateKeyPath is the tenant key used for the SSH connection.
	PrivateKeyPath string
}

// Installer wraps the nixos-anywhere CLI.
type Installer struct {
	run   runner.Runner
	log   *zap.Logger
	Debug bool
}

// NewInstaller builds an Installer on the given command runner.
func NewInstaller(run runner.Runner, log *zap.Logger) *Installer {
	return &Installer{run: run, log: log.Named("nixos")}
}

// Install runs nixos-anywhere against the target. It returns ErrNoFlake
// when FlakeDir has no flake.nix, leaving the host untouched.
func (i *Installer) Install(ctx context.Context, in InstallInput) error {
	flake := filepath.Join(in.FlakeDir, "flake.nix")
	if _, err := os.Stat(flake); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoFlake, flake)
		}
		return fmt.Errorf("failed to stat %s: %w", flake, err)
	}

	args := []string{
		"--flake", fmt.Sprintf("%s#%s", in.FlakeDir, in.FlakeAttr),
		"-i", in.PrivateKeyPath,
		"--ssh-option", "StrictHostKeyChecking=no",
		"--ssh-option", "UserKnownHostsFile=/dev/null",
	}
	if i.Debug {
		args = append(args, "--debug")
	}
	args = append(args, in.Target)

	i.log.Info("installing with nixos-anywhere",
		zap.String("flake", in.FlakeDir+"#"+in.FlakeAttr),
		zap.String("target", in.Target))
	return i.run.Run(ctx, runner.Spec{Name: "nixos-anywhere", Args: args})
}
