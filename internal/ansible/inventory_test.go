package ansible

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"provizor/internal/config"
)

func testInput() InventoryInput {
	return InventoryInput{
		VM: config.VMSpec{Name: "web-01", Tenant: "acme"},
		Install: config.InstallConfig{
			OS:       config.OSUbuntu,
			Packages: []string{"curl", "htop"},
			Users: []config.UserSpec{
				{Username: "deploy", Shell: "/bin/bash"},
			},
			Network: config.NetworkConfig{
				Hostname:    "web-01",
				AddressCIDR: "192.168.10.20/24",
			},
		},
		PublicKey:      "ssh-ed25519 AAAATEST tenant@acme",
		PrivateKeyPath: "/creds/acme/id_ed25519",
		Password:       "s3cret",
	}
}

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestRenderInventoryGroupsByOS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, testInput())
	require.NoError(t, err)

	inv := readYAML(t, rendered.InventoryPath)
	all := inv["all"].(map[string]any)
	children := all["children"].(map[string]any)
	ubuntu, ok := children["ubuntu"].(map[string]any)
	require.True(t, ok, "hosts must be grouped under their OS")
	hosts := ubuntu["hosts"].(map[string]any)
	host := hosts["web-01"].(map[string]any)
	assert.Equal(t, "192.168.10.20", host["ansible_host"], "CIDR suffix must be stripped")
}

func TestRenderInventoryHostVars(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, testInput())
	require.NoError(t, err)

	vars := readYAML(t, rendered.VarsPath)
	assert.Equal(t, "deploy", vars["ansible_user"])
	assert.Equal(t, "s3cret", vars["ansible_password"])
	assert.Equal(t, "/creds/acme/id_ed25519", vars["ansible_ssh_private_key_file"])
	assert.NotContains(t, vars, "ansible_python_interpreter")
	assert.NotContains(t, vars, "ansible_become_password")

	users := vars["users"].([]any)
	require.Len(t, users, 1)
	u := users[0].(map[string]any)
	keys := u["ssh_authorized_keys"].([]any)
	assert.Equal(t, "ssh-ed25519 AAAATEST tenant@acme", keys[0],
		"keyless users get the tenant key")
}

func TestRenderInventoryNixOSConnectionVars(t *testing.T) {
	in := testInput()
	in.Install.OS = config.OSNixOS

	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, in)
	require.NoError(t, err)

	vars := readYAML(t, rendered.VarsPath)
	assert.Equal(t, "/run/current-system/sw/bin/python3", vars["ansible_python_interpreter"])
	assert.Equal(t, "nixos", vars["ansible_become_password"])
}

func TestRenderInventoryDefaultUser(t *testing.T) {
	in := testInput()
	in.Install.Users = nil

	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, in)
	require.NoError(t, err)

	vars := readYAML(t, rendered.VarsPath)
	assert.Equal(t, "ubuntu", vars["ansible_user"])
	users := vars["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "ubuntu", users[0].(map[string]any)["username"])
}

func TestRenderInventoryUsernameOverride(t *testing.T) {
	in := testInput()
	in.UsernameOverride = "root"

	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, in)
	require.NoError(t, err)

	vars := readYAML(t, rendered.VarsPath)
	assert.Equal(t, "root", vars["ansible_user"])
}

func TestRenderInventoryHostnameFallback(t *testing.T) {
	in := testInput()
	in.Install.Network.AddressCIDR = ""

	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, in)
	require.NoError(t, err)

	inv := readYAML(t, rendered.InventoryPath)
	all := inv["all"].(map[string]any)
	children := all["children"].(map[string]any)
	hosts := children["ubuntu"].(map[string]any)["hosts"].(map[string]any)
	host := hosts["web-01"].(map[string]any)
	assert.Equal(t, "web-01", host["ansible_host"],
		"DHCP hosts fall back to their name for DNS resolution")
}

func TestRenderInventorySSHCommonArgs(t *testing.T) {
	in := testInput()
	in.Defaults.AnsibleDefaults = map[string]any{
		"ssh_common_args": "-o StrictHostKeyChecking=no",
	}

	dir := filepath.Join(t.TempDir(), "ansible")
	rendered, err := RenderInventory(dir, in)
	require.NoError(t, err)

	vars := readYAML(t, rendered.VarsPath)
	assert.Equal(t, "-o StrictHostKeyChecking=no", vars["ansible_ssh_common_args"])
}

func TestRenderInventoryReplacesPreviousRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ansible")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "old-host.vars.yaml")
	require.NoError(t, os.WriteFile(stale, []byte("stale: true\n"), 0o600))

	_, err := RenderInventory(dir, testInput())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale renders must be removed")
}
