package terraform

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"provizor/internal/config"
)

//go:embed templates
var templates embed.FS

const (
	moduleUbuntu = "proxmox_vm"
	moduleNixOS  = "proxmox_nixos_vm"
)

// RenderInput carries everything needed to render one host workdir.
type RenderInput struct {
	VM       config.VMSpec
	Install  config.InstallConfig
	Defaults config.Defaults

	// Tenant SSH material baked into tfvars.
	PublicKey      string
	PrivateKeyPath string

	// UsernameOverride replaces the install config's first user.
	UsernameOverride string
}

// Username resolves the provisioning user for the host: the override, the
// first configured user, or the OS default.
func (in RenderInput) Username() string {
	if in.UsernameOverride != "" {
		return in.UsernameOverride
	}
	if len(in.Install.Users) > 0 {
		return in.Install.Users[0].Username
	}
	if in.Install.OS == config.OSUbuntu {
		return "ubuntu"
	}
	return "root"
}

// Render writes a complete Terraform workdir for the host into dir,
// replacing any previous contents.
func Render(dir string, in RenderInput) error {
	endpoint, err := resolveEndpoint(in.Defaults)
	if err != nil {
		return err
	}

	moduleName := moduleUbuntu
	if in.Install.OS == config.OSNixOS {
		moduleName = moduleNixOS
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean workdir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workdir: %w", err)
	}

	for _, name := range []string{"provider.tf", "variables.tf"} {
		if err := copyTemplate(path.Join("templates", name), filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	if err := copyTemplateTree(path.Join("templates", "modules", moduleName),
		filepath.Join(dir, "modules", moduleName)); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte(mainTF(moduleName, in.Install.OS)), 0o644); err != nil { // #nosec G306
		return fmt.Errorf("failed to write main.tf: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "outputs.tf"), []byte(outputsTF), 0o644); err != nil { // #nosec G306
		return fmt.Errorf("failed to write outputs.tf: %w", err)
	}

	tfvars, err := json.MarshalIndent(in.tfvars(endpoint), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tfvars: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "terraform.tfvars.json"), tfvars, 0o600); err != nil {
		return fmt.Errorf("failed to write tfvars: %w", err)
	}
	return nil
}

// resolveEndpoint returns the Proxmox API endpoint from config, falling
// back to the legacy environment variables.
func resolveEndpoint(defaults config.Defaults) (string, error) {
	endpoint := strings.TrimSpace(defaults.ProviderString("pm_api_url"))
	if endpoint == "" {
		endpoint = os.Getenv("PM_API_URL")
	}
	if endpoint == "" {
		endpoint = os.Getenv("PROXMOX_VE_ENDPOINT")
	}
	if endpoint == "" {
		return "", fmt.Errorf("missing Proxmox API endpoint (set defaults.proxmox_provider.pm_api_url or PM_API_URL)")
	}
	return endpoint, nil
}

func (in RenderInput) tfvars(endpoint string) map[string]any {
	node := "pve"
	if v, ok := in.VM.Proxmox["node"].(string); ok && v != "" {
		node = v
	}
	storage := "local-lvm"
	if v, ok := in.VM.Proxmox["storage"].(string); ok && v != "" {
		storage = v
	}

	bridge := "vmbr0"
	vlan := 0
	if len(in.VM.NetIfs) > 0 {
		bridge = in.VM.NetIfs[0].Bridge
		vlan = in.VM.NetIfs[0].VLAN
	}
	diskSize := 20
	if len(in.VM.Disks) > 0 {
		diskSize = in.VM.Disks[0].SizeGB
	}

	ip := "dhcp"
	gateway := ""
	if !in.Install.Network.UseDHCP() {
		ip = in.Install.Network.AddressCIDR
		gateway = in.Install.Network.Gateway
	}
	dns := in.Install.Network.DNS
	if len(dns) == 0 {
		dns = []string{"1.1.1.1", "9.9.9.9"}
	}

	vars := map[string]any{
		"pm_api_url":      endpoint,
		"pm_tls_insecure": true,

		"vm_name":      in.VM.Name,
		"vm_node":      node,
		"vm_storage":   storage,
		"vm_bridge":    bridge,
		"vm_vlan":      vlan,
		"vm_cpus":      in.VM.CPUs,
		"vm_memory":    in.VM.MemoryMB,
		"vm_disk_size": diskSize,

		"vm_ip":      ip,
		"vm_gateway": gateway,
		"vm_dns":     dns,

		"ssh_key":                      in.PublicKey,
		"vm_username":                  in.Username(),
		"proxmox_ssh_private_key_path": in.PrivateKeyPath,
	}

	if in.Install.OS == config.OSUbuntu {
		vars["ubuntu_template"] = in.templateID("ubuntu_template")
	} else {
		nixosTemplate := in.templateID("nixos_template")
		if env := os.Getenv("NIXOS_TEMPLATE"); env != "" {
			nixosTemplate = env
		}
		vars["nixos_template"] = nixosTemplate
	}
	return vars
}

// templateID resolves the VM template for the host. An install-level
// template_profile names an alternate key in the provider map.
func (in RenderInput) templateID(defaultKey string) string {
	fallback := "9000"
	if defaultKey == "nixos_template" {
		fallback = "9100"
	}
	id := in.Defaults.ProviderString(defaultKey)
	if id == "" {
		id = fallback
	}
	if in.Install.TemplateProfile != "" {
		if v := in.Defaults.ProviderString(in.Install.TemplateProfile); v != "" {
			id = v
		}
	}
	return id
}

func mainTF(moduleName string, os config.OSType) string {
	osLine := "ubuntu_template = var.ubuntu_template"
	if os == config.OSNixOS {
		osLine = "nixos_template = var.nixos_template"
	}
	return fmt.Sprintf(`module "vm" {
  source = "./modules/%s"

  vm_name      = var.vm_name
  vm_node      = var.vm_node
  vm_storage   = var.vm_storage
  vm_bridge    = var.vm_bridge
  vm_vlan      = var.vm_vlan
  vm_cpus      = var.vm_cpus
  vm_memory    = var.vm_memory
  vm_disk_size = var.vm_disk_size

  # Networking
  vm_ip      = var.vm_ip
  vm_gateway = var.vm_gateway
  vm_dns     = var.vm_dns

  # Auth/user
  ssh_key                      = var.ssh_key
  vm_username                  = var.vm_username
  proxmox_ssh_private_key_path = var.proxmox_ssh_private_key_path

  # OS-specific
  %s
}
`, moduleName, osLine)
}

const outputsTF = `output "vm_ip" {
  description = "VM IP address (static or dhcp-pending)"
  value       = module.vm.vm_ip
}
`

func copyTemplate(src, dst string) error {
	data, err := templates.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil { // #nosec G306
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func copyTemplateTree(srcRoot, dstRoot string) error {
	return fs.WalkDir(templates, srcRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dstRoot, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyTemplate(p, target)
	})
}
