package services

import (
	"context"
	"fmt"

	"provizor/internal/runner"
)

// Nextcloud creates users with the occ CLI, either inside the docker
// container or through the NixOS wrapper.
type Nextcloud struct {
	Run runner.Runner
	// Docker selects the container invocation; false means NixOS.
	Docker bool
	// Container overrides the docker container name.
	Container string
}

// Name implements Provisioner.
func (n *Nextcloud) Name() string { return "nextcloud" }

// Ready probes the occ CLI; an unreachable container or a broken
// installation makes occ status fail.
func (n *Nextcloud) Ready(ctx context.Context) bool {
	container := n.Container
	if container == "" {
		container = "nextcloud"
	}

	var spec runner.Spec
	if n.Docker {
		spec = runner.Spec{
			Name: "docker",
			Args: []string{"exec", "-u", "www-data", container, "php", "occ", "status"},
		}
	} else {
		spec = runner.Spec{
			Name: "sudo",
			Args: []string{"-u", "nextcloud", "nextcloud-occ", "status"},
		}
	}
	return n.Run.Run(ctx, spec) == nil
}

// CreateUser runs occ user:add. The password travels via the OC_PASS
// environment variable so it never appears in an argument list.
func (n *Nextcloud) CreateUser(ctx context.Context, creds Credentials) error {
	container := n.Container
	if container == "" {
		container = "nextcloud"
	}

	var spec runner.Spec
	if n.Docker {
		spec = runner.Spec{
			Name: "docker",
			Args: []string{"exec", "-e", "OC_PASS", "-u", "www-data", container,
				"php", "occ", "user:add", "--password-from-env", creds.Username},
		}
	} else {
		spec = runner.Spec{
			Name: "sudo",
			Args: []string{"-E", "-u", "nextcloud", "nextcloud-occ",
				"user:add", "--password-from-env", creds.Username},
		}
	}
	spec.Env = map[string]string{"OC_PASS": creds.Password}

	if err := n.Run.Run(ctx, spec); err != nil {
		return fmt.Errorf("occ user:add failed: %w", err)
	}
	return nil
}
