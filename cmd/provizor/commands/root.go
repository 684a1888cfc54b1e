// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the provizor CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provizor",
		Short: "Provision Proxmox VMs and bare-metal hosts with Ubuntu or NixOS",
	}

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Render())

	// Utility commands
	cmd.AddCommand(Keys())
	cmd.AddCommand(Users())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
