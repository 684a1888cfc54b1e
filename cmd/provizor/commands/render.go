package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Render returns the command that writes workdirs without running tools.
func Render() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render terraform workdirs and ansible inventories only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), opts)
		},
	}

	bindRunFlags(cmd, &opts)
	return cmd
}
