package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Plan returns the command for a terraform plan-only pass.
func Plan() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Render terraform workdirs and show what would change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), opts)
		},
	}

	bindRunFlags(cmd, &opts)
	return cmd
}
