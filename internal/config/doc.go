// Package config loads the layered provisioning configuration.
//
// Three YAML layers are merged with fixed precedence (later layers
// override earlier ones):
//
//  1. defaults.yaml: provider endpoint, image catalog, PXE roots
//  2. vm_specs.yaml: per-host hardware specs (vms: [...])
//  3. install_config.yaml: per-host OS install configs (installs: {...})
//
// The install layer may be read from stdin by passing "-", so rendered
// install configs can be piped straight into the CLI.
package config
