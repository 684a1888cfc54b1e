package handlers

import (
	"context"
	"fmt"
	"path/filepath"

	"provizor/internal/ansible"
	"provizor/internal/config"
	"provizor/internal/terraform"
)

// Render writes the terraform workdir and ansible inventory for every
// selected host without running any external tool. Useful for inspecting
// what apply would execute.
func Render(ctx context.Context, opts RunOptions) error {
	if err := initLog(opts.Debug); err != nil {
		return err
	}

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}
	tenants := newTenantStore(opts)

	selected := cfg.SelectHosts(opts.Hosts)
	if len(selected) == 0 {
		if len(opts.Hosts) > 0 {
			return fmt.Errorf("no configured hosts match %v", opts.Hosts)
		}
		return fmt.Errorf("no hosts configured")
	}

	for _, vm := range selected {
		install, ok := cfg.InstallFor(vm.Name)
		if !ok {
			return fmt.Errorf("no install config for host %s", vm.Name)
		}
		keys, err := tenants.EnsureKeypair(vm.Tenant)
		if err != nil {
			return err
		}
		password, err := tenants.EnsurePassword(vm.Tenant)
		if err != nil {
			return err
		}

		if vm.Hypervisor == config.HypervisorProxmox {
			tfDir := hostTFDir(opts, vm.Name)
			if err := terraform.Render(tfDir, terraform.RenderInput{
				VM:               vm,
				Install:          install,
				Defaults:         cfg.Defaults,
				PublicKey:        keys.PublicKey,
				PrivateKeyPath:   keys.PrivateKeyPath,
				UsernameOverride: opts.Username,
			}); err != nil {
				return err
			}
			fmt.Printf("Rendered terraform workdir for %s\n", vm.Name)
		}

		ansDir := filepath.Join(filepath.Dir(hostTFDir(opts, vm.Name)), "ansible")
		in := ansible.InventoryInput{
			VM:               vm,
			Install:          install,
			Defaults:         cfg.Defaults,
			PublicKey:        keys.PublicKey,
			PrivateKeyPath:   keys.PrivateKeyPath,
			Password:         password,
			UsernameOverride: opts.Username,
		}
		if _, err := ansible.RenderInventory(ansDir, in); err != nil {
			return err
		}
		fmt.Printf("Rendered ansible inventory for %s\n", vm.Name)
	}
	return nil
}
