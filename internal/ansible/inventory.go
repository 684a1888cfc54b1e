// Package ansible renders per-host inventories and drives
// ansible-playbook for OS installation and post-configuration.
package ansible

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"provizor/internal/config"
)

// InventoryInput carries everything needed to render one host inventory.
type InventoryInput struct {
	VM       config.VMSpec
	Install  config.InstallConfig
	Defaults config.Defaults

	// Tenant credentials for the connection vars.
	PublicKey      string
	PrivateKeyPath string
	Password       string

	// UsernameOverride replaces the install config's first user for the
	// ansible connection.
	UsernameOverride string
}

// Rendered points at the files an inventory render produced.
type Rendered struct {
	InventoryPath string
	VarsPath      string
}

// RenderInventory writes inventory.yaml and <host>.vars.yaml into dir,
// replacing any previous contents.
func RenderInventory(dir string, in InventoryInput) (Rendered, error) {
	if err := os.RemoveAll(dir); err != nil {
		return Rendered{}, fmt.Errorf("failed to clean ansible dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Rendered{}, fmt.Errorf("failed to create ansible dir: %w", err)
	}

	users := effectiveUsers(in.Install.Users, in.PublicKey)
	ansibleUser := in.UsernameOverride
	if ansibleUser == "" {
		ansibleUser = users[0].Username
	}

	hostIP := in.Install.Network.AddressCIDR
	if hostIP == "" {
		hostIP = in.VM.Name
	}
	if i := strings.IndexByte(hostIP, '/'); i >= 0 {
		hostIP = strings.TrimSpace(hostIP[:i])
	}

	// Hosts are grouped by OS so playbooks can target ubuntu/nixos.
	inventory := map[string]any{
		"all": map[string]any{
			"children": map[string]any{
				string(in.Install.OS): map[string]any{
					"hosts": map[string]any{
						in.VM.Name: map[string]any{"ansible_host": hostIP},
					},
				},
			},
		},
	}

	hostVars := map[string]any{
		"ansible_user":                 ansibleUser,
		"ansible_password":             in.Password,
		"ansible_ssh_private_key_file": in.PrivateKeyPath,
		"network":                      in.Install.Network,
		"packages":                     in.Install.Packages,
		"docker_enabled":               in.Install.Docker,
		"nix_services":                 in.Install.NixServices,
		"partitioning":                 in.Install.Partitioning,
		"users":                        users,
	}

	if in.Install.OS == config.OSNixOS {
		// python3 from environment.systemPackages lives under the system
		// profile, and the stock templates use "nixos" as the sudo
		// password.
		hostVars["ansible_python_interpreter"] = "/run/current-system/sw/bin/python3"
		hostVars["ansible_become_password"] = "nixos"
	}

	if args, ok := in.Defaults.AnsibleDefaults["ssh_common_args"].(string); ok && args != "" {
		hostVars["ansible_ssh_common_args"] = args
	}

	out := Rendered{
		InventoryPath: filepath.Join(dir, "inventory.yaml"),
		VarsPath:      filepath.Join(dir, in.VM.Name+".vars.yaml"),
	}
	if err := writeYAML(out.InventoryPath, inventory); err != nil {
		return Rendered{}, err
	}
	if err := writeYAML(out.VarsPath, hostVars); err != nil {
		return Rendered{}, err
	}
	return out, nil
}

// effectiveUsers gives every keyless user the tenant public key, and
// falls back to a default ubuntu sudo user when none are configured.
func effectiveUsers(users []config.UserSpec, publicKey string) []config.UserSpec {
	if len(users) == 0 {
		return []config.UserSpec{{
			Username:          "ubuntu",
			Shell:             "/bin/bash",
			SSHAuthorizedKeys: []string{publicKey},
		}}
	}
	out := make([]config.UserSpec, len(users))
	copy(out, users)
	for i := range out {
		if len(out[i].SSHAuthorizedKeys) == 0 {
			out[i].SSHAuthorizedKeys = []string{publicKey}
		}
	}
	return out
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
