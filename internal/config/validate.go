package config

import (
	"fmt"
	"net"
	"strings"
)

var validDiskTypes = map[string]bool{"scsi": true, "virtio": true, "sata": true}

var validNetModels = map[string]bool{"virtio": true, "e1000": true, "rtl8139": true}

// Validate checks the merged configuration and returns a detailed error
// naming the offending host and field.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.VMs {
		vm := &c.VMs[i]
		if vm.Name == "" {
			return fmt.Errorf("vms[%d]: name is required", i)
		}
		if seen[vm.Name] {
			return fmt.Errorf("host %q: duplicate vm spec", vm.Name)
		}
		seen[vm.Name] = true

		if err := vm.validate(); err != nil {
			return fmt.Errorf("host %q: %w", vm.Name, err)
		}
	}

	for name, install := range c.Installs {
		if err := install.validate(); err != nil {
			return fmt.Errorf("install %q: %w", name, err)
		}
	}
	return nil
}

func (vm *VMSpec) validate() error {
	switch vm.Hypervisor {
	case HypervisorProxmox, HypervisorBaremetal:
	default:
		return fmt.Errorf("invalid hypervisor %q", vm.Hypervisor)
	}
	switch vm.BootMethod {
	case BootISO, BootImage, BootPXE:
	default:
		return fmt.Errorf("invalid boot_method %q", vm.BootMethod)
	}
	if vm.CPUs < 1 {
		return fmt.Errorf("cpus must be >= 1, got %d", vm.CPUs)
	}
	if vm.MemoryMB < 512 {
		return fmt.Errorf("memory_mb must be >= 512, got %d", vm.MemoryMB)
	}
	for i, disk := range vm.Disks {
		if disk.SizeGB < 8 {
			return fmt.Errorf("disks[%d]: size_gb must be >= 8, got %d", i, disk.SizeGB)
		}
		if !validDiskTypes[disk.Type] {
			return fmt.Errorf("disks[%d]: invalid type %q", i, disk.Type)
		}
	}
	for i, nic := range vm.NetIfs {
		if nic.Bridge == "" {
			return fmt.Errorf("netifs[%d]: bridge is required", i)
		}
		if !validNetModels[nic.Model] {
			return fmt.Errorf("netifs[%d]: invalid model %q", i, nic.Model)
		}
	}
	return nil
}

func (ic *InstallConfig) validate() error {
	switch ic.OS {
	case OSUbuntu, OSNixOS:
	default:
		return fmt.Errorf("invalid os %q", ic.OS)
	}

	// Static networking needs an address to install to.
	if !ic.Network.UseDHCP() && ic.Network.AddressCIDR == "" {
		return fmt.Errorf("static network requires address_cidr")
	}
	if ic.Network.AddressCIDR != "" {
		if _, _, err := net.ParseCIDR(ic.Network.AddressCIDR); err != nil {
			// Bare addresses are tolerated for DHCP-resolved hosts.
			if strings.Contains(ic.Network.AddressCIDR, "/") {
				return fmt.Errorf("invalid network.address_cidr: %w", err)
			}
		}
	}
	return nil
}
