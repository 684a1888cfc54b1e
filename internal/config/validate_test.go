package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validVM() VMSpec {
	return VMSpec{
		Name:       "web-01",
		Tenant:     "default",
		Hypervisor: HypervisorProxmox,
		BootMethod: BootISO,
		CPUs:       2,
		MemoryMB:   2048,
		Disks:      []DiskSpec{{SizeGB: 20, Storage: "local-lvm", Type: "scsi"}},
		NetIfs:     []NetIfSpec{{Bridge: "vmbr0", Model: "virtio"}},
	}
}

func TestValidateVMSpec(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*VMSpec)
		wantErr string
	}{
		{"valid", func(*VMSpec) {}, ""},
		{"bad hypervisor", func(vm *VMSpec) { vm.Hypervisor = "vmware" }, "invalid hypervisor"},
		{"bad boot method", func(vm *VMSpec) { vm.BootMethod = "floppy" }, "invalid boot_method"},
		{"too few cpus", func(vm *VMSpec) { vm.CPUs = 0 }, "cpus must be >= 1"},
		{"too little memory", func(vm *VMSpec) { vm.MemoryMB = 256 }, "memory_mb must be >= 512"},
		{"tiny disk", func(vm *VMSpec) { vm.Disks[0].SizeGB = 4 }, "size_gb must be >= 8"},
		{"bad disk type", func(vm *VMSpec) { vm.Disks[0].Type = "ide" }, "invalid type"},
		{"missing bridge", func(vm *VMSpec) { vm.NetIfs[0].Bridge = "" }, "bridge is required"},
		{"bad nic model", func(vm *VMSpec) { vm.NetIfs[0].Model = "ne2k" }, "invalid model"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vm := validVM()
			tc.mutate(&vm)
			cfg := &Config{VMs: []VMSpec{vm}}
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Contains(t, err.Error(), "web-01")
		})
	}
}

func TestValidateDuplicateHost(t *testing.T) {
	cfg := &Config{VMs: []VMSpec{validVM(), validVM()}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate vm spec")
}

func TestValidateInstallConfig(t *testing.T) {
	dhcpOff := false

	t.Run("unknown os", func(t *testing.T) {
		cfg := &Config{Installs: map[string]InstallConfig{
			"h": {OS: "arch"},
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid os "arch"`)
	})

	t.Run("static without address", func(t *testing.T) {
		cfg := &Config{Installs: map[string]InstallConfig{
			"h": {OS: OSUbuntu, Network: NetworkConfig{DHCP: &dhcpOff}},
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "static network requires address_cidr")
	})

	t.Run("malformed cidr", func(t *testing.T) {
		cfg := &Config{Installs: map[string]InstallConfig{
			"h": {OS: OSUbuntu, Network: NetworkConfig{DHCP: &dhcpOff, AddressCIDR: "10.0.0.300/24"}},
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid network.address_cidr")
	})

	t.Run("bare address is tolerated", func(t *testing.T) {
		cfg := &Config{Installs: map[string]InstallConfig{
			"h": {OS: OSNixOS, Network: NetworkConfig{AddressCIDR: "10.0.0.7"}},
		}}
		assert.NoError(t, cfg.Validate())
	})
}
