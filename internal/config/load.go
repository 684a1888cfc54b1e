package config

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Stdin is the reader used when a layer path is "-". Tests replace it.
var Stdin io.Reader = os.Stdin

// Load reads and merges the three configuration layers, applies defaults
// and validates the result.
func Load(defaultsPath, vmSpecsPath, installPath string) (*Config, error) {
	defaults, err := loadLayer(defaultsPath)
	if err != nil {
		return nil, fmt.Errorf("defaults layer: %w", err)
	}
	vmSpecs, err := loadLayer(vmSpecsPath)
	if err != nil {
		return nil, fmt.Errorf("vm specs layer: %w", err)
	}
	installs, err := loadLayer(installPath)
	if err != nil {
		return nil, fmt.Errorf("install config layer: %w", err)
	}

	// defaults.yaml historically holds the defaults keys at its top level;
	// nest them unless the file already uses the merged shape.
	if _, ok := defaults["defaults"]; !ok {
		defaults = map[string]any{"defaults": defaults}
	}

	merged := DeepMerge(DeepMerge(defaults, vmSpecs), installs)

	var cfg Config
	if err := mapstructure.Decode(merged, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// loadLayer reads one YAML layer. "-" reads from Stdin so install configs
// can be piped in.
func loadLayer(path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(Stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return raw, nil
}

// applyDefaults fills in the historical defaults for unset fields.
func (c *Config) applyDefaults() {
	if c.Defaults.PXE.TFTPRoot == "" {
		c.Defaults.PXE.TFTPRoot = "/var/lib/tftpboot"
	}
	if c.Defaults.PXE.HTTPRoot == "" {
		c.Defaults.PXE.HTTPRoot = "/var/www/html"
	}

	for i := range c.VMs {
		vm := &c.VMs[i]
		if vm.Tenant == "" {
			vm.Tenant = "default"
		}
		if vm.Hypervisor == "" {
			vm.Hypervisor = HypervisorProxmox
		}
		if vm.BootMethod == "" {
			vm.BootMethod = BootISO
		}
		if vm.CPUs == 0 {
			vm.CPUs = 2
		}
		if vm.MemoryMB == 0 {
			vm.MemoryMB = 4096
		}
		for j := range vm.Disks {
			if vm.Disks[j].SizeGB == 0 {
				vm.Disks[j].SizeGB = 50
			}
			if vm.Disks[j].Type == "" {
				vm.Disks[j].Type = "scsi"
			}
		}
		for j := range vm.NetIfs {
			if vm.NetIfs[j].Model == "" {
				vm.NetIfs[j].Model = "virtio"
			}
		}
	}

	for name, install := range c.Installs {
		for j := range install.Users {
			if install.Users[j].Shell == "" {
				install.Users[j].Shell = "/bin/bash"
			}
		}
		c.Installs[name] = install
	}
}
