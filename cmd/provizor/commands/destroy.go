package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Destroy returns the command for tearing host infrastructure down.
func Destroy() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the infrastructure of the selected hosts",
		Long: `Destroy the infrastructure of the selected hosts.

Runs terraform destroy in every rendered workdir. Hosts without a
rendered workdir are skipped.

Examples:
  provizor destroy --hosts web-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), opts)
		},
	}

	bindRunFlags(cmd, &opts)
	return cmd
}
