// Package terraform renders per-host Terraform workdirs and drives the
// terraform binary through init/validate/plan/apply/destroy.
//
// Each host gets a self-contained workdir: the embedded provider and
// variable templates, the OS-matching VM module, a generated main.tf
// instantiating it as module "vm", and terraform.tfvars.json with all
// non-secret inputs. The Proxmox API token is never written to disk; the
// provider reads it from its own environment variables.
package terraform
