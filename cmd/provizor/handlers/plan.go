package handlers

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"provizor/internal/config"
	"provizor/internal/runner"
	"provizor/internal/terraform"
	"provizor/pkg/logger"
)

// Plan renders the terraform workdirs for the selected hosts and runs a
// plan in each, without applying anything.
func Plan(ctx context.Context, opts RunOptions) error {
	if err := initLog(opts.Debug); err != nil {
		return err
	}
	log := logger.L()

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	run := runner.NewExec(log, func(line string) { fmt.Println(line) })
	tf := terraform.New(run, log)
	tf.Debug = opts.Debug
	tenants := newTenantStore(opts)

	hosts, err := selectProxmoxHosts(cfg, opts.Hosts, log)
	if err != nil {
		return err
	}
	for _, vm := range hosts {
		install, ok := cfg.InstallFor(vm.Name)
		if !ok {
			return fmt.Errorf("no install config for host %s", vm.Name)
		}
		keys, err := tenants.EnsureKeypair(vm.Tenant)
		if err != nil {
			return err
		}

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
		if err := tf.Init(ctx, tfDir); err != nil {
			return err
		}
		if err := tf.Plan(ctx, tfDir); err != nil {
			return err
		}
		fmt.Printf("Plan complete for %s (%s)\n", vm.Name, tfDir)
	}
	return nil
}

// selectProxmoxHosts filters the run to Proxmox hosts, warning about
// bare-metal ones which have no terraform workdir.
func selectProxmoxHosts(cfg *config.Config, names []string, log *zap.Logger) ([]config.VMSpec, error) {
	selected := cfg.SelectHosts(names)
	if len(selected) == 0 {
		if len(names) > 0 {
			return nil, fmt.Errorf("no configured hosts match %v", names)
		}
		return nil, fmt.Errorf("no hosts configured")
	}

	var proxmox []config.VMSpec
	for _, vm := range selected {
		if vm.Hypervisor != config.HypervisorProxmox {
			log.Info("skipping bare-metal host, nothing to plan", zap.String("host", vm.Name))
			continue
		}
		proxmox = append(proxmox, vm)
	}
	return proxmox, nil
}

func hostTFDir(opts RunOptions, host string) string {
	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = "build"
	}
	return filepath.Join(buildDir, host, "tf")
}
