package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// bindRunFlags attaches the flags shared by the provisioning commands.
func bindRunFlags(cmd *cobra.Command, opts *handlers.RunOptions) {
	cmd.Flags().StringVar(&opts.DefaultsPath, "defaults", "", "Path to defaults.yaml")
	cmd.Flags().StringVar(&opts.VMSpecsPath, "vm-specs", "", "Path to vm_specs.yaml")
	cmd.Flags().StringVar(&opts.InstallPath, "install-config", "", "Path to install_config.yaml ('-' for stdin)")
	cmd.Flags().StringSliceVar(&opts.Hosts, "hosts", nil, "Limit the run to these hosts")
	cmd.Flags().StringVar(&opts.Username, "username", "", "Override the connection user on every host")
	cmd.Flags().StringVar(&opts.TenantDir, "tenant-dir", "", "Tenant credentials directory (default: tenants)")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "Workdir root (default: build)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Verbose tool output")
}

// Apply returns the command for the full provisioning pipeline.
//
// Optional flags select config layers, hosts, stage targets and
// concurrency. A TTY gets the live dashboard unless --no-tui is set.
func Apply() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Provision the configured hosts end to end",
		Long: `Provision the configured hosts end to end.

Per host this renders a terraform workdir, applies the infrastructure,
waits for the guest, then runs the OS and post playbooks (nixos-anywhere
first on NixOS hosts). Hosts are provisioned concurrently.

Examples:
  # Provision every configured host
  provizor apply

  # Only two hosts, infra stage only
  provizor apply --hosts web-01,web-02 --targets infra

  # Plain log output on a TTY
  provizor apply --no-tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	bindRunFlags(cmd, &opts)
	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil, "Stage groups to run (infra, pxe, os, post)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Concurrent hosts (default: 4)")
	cmd.Flags().StringVar(&opts.FlakeRoot, "flake-root", "", "NixOS flakes root (default: nix)")
	cmd.Flags().StringVar(&opts.PlaybookDir, "playbook-dir", "", "Playbook directory (default: playbooks)")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Disable the live dashboard")

	return cmd
}
