package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Init returns the command that runs the configuration wizard.
func Init() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration files interactively",
		Long: `Create the configuration files interactively.

Asks a handful of questions and writes defaults.yaml, vm_specs.yaml and
install_config.yaml for a first host. Existing files are overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory for the generated files")
	return cmd
}
