package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	HostName   string
	Hypervisor Hypervisor
	OS         OSType
	CPUs       int
	MemoryMB   int
	DiskGB     int

	DHCP        bool
	AddressCIDR string
	Gateway     string

	Endpoint string
	Node     string
	Storage  string
	Bridge   string

	Username string
}

// RunWizard asks the handful of questions needed to scaffold a working
// configuration set.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Hypervisor: HypervisorProxmox,
		OS:         OSUbuntu,
		CPUs:       2,
		MemoryMB:   4096,
		DiskGB:     50,
		DHCP:       true,
		Storage:    "local-lvm",
		Bridge:     "vmbr0",
		Username:   "ubuntu",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host name").
				Description("Name of the first host to provision (DNS-safe, lowercase)").
				Placeholder("web-01").
				Value(&result.HostName).
				Validate(validateHostName),
		),

		huh.NewGroup(
			huh.NewSelect[Hypervisor]().
				Title("Platform").
				Description("proxmox: create a VM | baremetal: PXE-boot existing hardware").
				Options(
					huh.NewOption("Proxmox VM", HypervisorProxmox),
					huh.NewOption("Bare metal (PXE)", HypervisorBaremetal),
				).
				Value(&result.Hypervisor),

			huh.NewSelect[OSType]().
				Title("Operating system").
				Options(
					huh.NewOption("Ubuntu", OSUbuntu),
					huh.NewOption("NixOS", OSNixOS),
				).
				Value(&result.OS),
		),

		huh.NewGroup(
			huh.NewSelect[int]().
				Title("CPU cores").
				Options(
					huh.NewOption("2 cores", 2),
					huh.NewOption("4 cores", 4),
					huh.NewOption("8 cores", 8),
				).
				Value(&result.CPUs),

			huh.NewSelect[int]().
				Title("Memory").
				Options(
					huh.NewOption("2 GB", 2048),
					huh.NewOption("4 GB", 4096),
					huh.NewOption("8 GB", 8192),
					huh.NewOption("16 GB", 16384),
				).
				Value(&result.MemoryMB),

			huh.NewSelect[int]().
				Title("Disk size").
				Options(
					huh.NewOption("50 GB", 50),
					huh.NewOption("100 GB", 100),
					huh.NewOption("250 GB", 250),
				).
				Value(&result.DiskGB),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Use DHCP?").
				Description("Static addressing asks for an address and gateway next").
				Value(&result.DHCP),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Static address (CIDR)").
				Placeholder("192.168.1.50/24").
				Value(&result.AddressCIDR).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("a static address is required without DHCP")
					}
					if !strings.Contains(s, "/") {
						return fmt.Errorf("address must include a prefix length, e.g. /24")
					}
					return nil
				}),

			huh.NewInput().
				Title("Gateway").
				Placeholder("192.168.1.1").
				Value(&result.Gateway),
		).WithHideFunc(func() bool { return result.DHCP }),

		huh.NewGroup(
			huh.NewInput().
				Title("Proxmox API endpoint").
				Description("Also settable later via PM_API_URL").
				Placeholder("https://proxmox.local:8006/api2/json").
				Value(&result.Endpoint),

			huh.NewInput().
				Title("Proxmox node").
				Placeholder("pve").
				Value(&result.Node),

			huh.NewInput().
				Title("VM storage").
				Value(&result.Storage),

			huh.NewInput().
				Title("Network bridge").
				Value(&result.Bridge),
		).WithHideFunc(func() bool { return result.Hypervisor != HypervisorProxmox }),

		huh.NewGroup(
			huh.NewInput().
				Title("Admin username").
				Description("The sudo user created on the host").
				Value(&result.Username),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}
	return result, nil
}

// Files converts the wizard result into the three configuration layers.
func (r *WizardResult) Files() (defaults Defaults, vms []VMSpec, installs map[string]InstallConfig) {
	defaults = Defaults{
		ImageCatalog: ImageCatalog{
			UbuntuISOURL: "https://releases.ubuntu.com/24.04/ubuntu-24.04-live-server-amd64.iso",
			NixOSISOURL:  "https://channels.nixos.org/nixos-24.05/latest-nixos-minimal-x86_64-linux.iso",
		},
		ProxmoxProvider: map[string]any{},
		PXE: PXEConfig{
			TFTPRoot: "/srv/tftp",
			HTTPRoot: "/srv/http",
		},
	}
	if r.Endpoint != "" {
		defaults.ProxmoxProvider["pm_api_url"] = r.Endpoint
	}

	vm := VMSpec{
		Name:       r.HostName,
		Hypervisor: r.Hypervisor,
		CPUs:       r.CPUs,
		MemoryMB:   r.MemoryMB,
		Disks:      []DiskSpec{{SizeGB: r.DiskGB, Storage: r.Storage}},
		NetIfs:     []NetIfSpec{{Bridge: r.Bridge}},
	}
	switch r.Hypervisor {
	case HypervisorProxmox:
		vm.BootMethod = BootImage
		vm.Proxmox = map[string]any{"node": r.Node, "storage": r.Storage}
	case HypervisorBaremetal:
		vm.BootMethod = BootPXE
	}

	dhcp := r.DHCP
	network := NetworkConfig{Hostname: r.HostName, DHCP: &dhcp}
	if !r.DHCP {
		network.AddressCIDR = r.AddressCIDR
		network.Gateway = r.Gateway
	}
	install := InstallConfig{
		OS:      r.OS,
		Network: network,
		Users:   []UserSpec{{Username: r.Username}},
	}

	return defaults, []VMSpec{vm}, map[string]InstallConfig{r.HostName: install}
}

// WriteFiles writes defaults.yaml, vm_specs.yaml and install_config.yaml
// into dir.
func (r *WizardResult) WriteFiles(dir string) error {
	defaults, vms, installs := r.Files()

	files := []struct {
		name string
		data any
	}{
		{"defaults.yaml", map[string]any{"defaults": defaults}},
		{"vm_specs.yaml", map[string]any{"vms": vms}},
		{"install_config.yaml", map[string]any{"installs": installs}},
	}
	for _, f := range files {
		out, err := yaml.Marshal(f.data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func validateHostName(s string) error {
	if s == "" {
		return fmt.Errorf("host name is required")
	}
	if len(s) > 63 {
		return fmt.Errorf("host name must be 63 characters or less")
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("host name can only contain lowercase letters, numbers, and hyphens")
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("host name cannot start or end with a hyphen")
	}
	return nil
}
