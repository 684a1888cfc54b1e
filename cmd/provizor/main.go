// Package main is the entry point for the provizor CLI.
//
// provizor provisions Proxmox VMs and PXE-booted bare-metal hosts running
// Ubuntu or NixOS by orchestrating terraform, ansible-playbook and
// nixos-anywhere, then provisions service users on the deployed stack.
//
// For detailed usage information, run:
//
//	provizor --help
package main

import (
	"fmt"
	"os"

	"provizor/cmd/provizor/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
