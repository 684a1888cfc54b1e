package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Keys returns the command that manages tenant credentials.
func Keys() *cobra.Command {
	var tenantDir string

	cmd := &cobra.Command{
		Use:   "keys [tenant]",
		Short: "Ensure and show a tenant's SSH keypair and password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tenant := ""
			if len(args) > 0 {
				tenant = args[0]
			}
			return handlers.Keys(tenantDir, tenant)
		},
	}

	cmd.Flags().StringVar(&tenantDir, "tenant-dir", "", "Tenant credentials directory (default: tenants)")
	return cmd
}
