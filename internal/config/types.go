package config

// BootMethod selects how a host gets its operating system.
type BootMethod string

const (
	BootISO   BootMethod = "iso"
	BootImage BootMethod = "image"
	BootPXE   BootMethod = "pxe"
)

// OSType is the operating system installed on a host.
type OSType string

const (
	OSUbuntu OSType = "ubuntu"
	OSNixOS  OSType = "nixos"
)

// Hypervisor is the substrate a host runs on.
type Hypervisor string

const (
	HypervisorProxmox   Hypervisor = "proxmox"
	HypervisorBaremetal Hypervisor = "baremetal"
)

// DiskSpec describes a virtual disk.
type DiskSpec struct {
	SizeGB  int    `mapstructure:"size_gb" yaml:"size_gb"`
	Storage string `mapstructure:"storage" yaml:"storage"`
	Type    string `mapstructure:"type" yaml:"type"` // scsi, virtio, sata
}

// NetIfSpec describes a virtual network interface.
type NetIfSpec struct {
	Bridge string `mapstructure:"bridge" yaml:"bridge"`
	VLAN   int    `mapstructure:"vlan" yaml:"vlan,omitempty"`
	MAC    string `mapstructure:"mac" yaml:"mac,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"` // virtio, e1000, rtl8139
	MTU    int    `mapstructure:"mtu" yaml:"mtu,omitempty"`
}

// NetworkConfig describes guest networking for an install.
type NetworkConfig struct {
	Hostname    string      `mapstructure:"hostname" yaml:"hostname"`
	Domain      string      `mapstructure:"domain" yaml:"domain,omitempty"`
	DHCP        *bool       `mapstructure:"dhcp" yaml:"dhcp"`
	AddressCIDR string      `mapstructure:"address_cidr" yaml:"address_cidr,omitempty"`
	Gateway     string      `mapstructure:"gateway" yaml:"gateway,omitempty"`
	DNS         []string    `mapstructure:"dns" yaml:"dns,omitempty"`
	Interfaces  []NetIfSpec `mapstructure:"interfaces" yaml:"interfaces,omitempty"`
}

// UseDHCP reports whether the host acquires its address over DHCP.
// Unset means DHCP, matching the historical default.
func (n NetworkConfig) UseDHCP() bool {
	return n.DHCP == nil || *n.DHCP
}

// UserSpec describes an OS user to create on the host.
type UserSpec struct {
	Username          string   `mapstructure:"username" yaml:"username"`
	SSHAuthorizedKeys []string `mapstructure:"ssh_authorized_keys" yaml:"ssh_authorized_keys,omitempty"`
	Sudo              *bool    `mapstructure:"sudo" yaml:"sudo"`
	Shell             string   `mapstructure:"shell" yaml:"shell"`
}

// HasSudo reports whether the user gets sudo. Unset defaults to true.
func (u UserSpec) HasSudo() bool {
	return u.Sudo == nil || *u.Sudo
}

// InstallConfig describes the OS installation of a single host.
type InstallConfig struct {
	OS              OSType         `mapstructure:"os" yaml:"os"`
	Version         string         `mapstructure:"version" yaml:"version"`
	Packages        []string       `mapstructure:"packages" yaml:"packages,omitempty"`
	Users           []UserSpec     `mapstructure:"users" yaml:"users"`
	Network         NetworkConfig  `mapstructure:"network" yaml:"network"`
	Docker          bool           `mapstructure:"docker" yaml:"docker"`
	NixServices     []string       `mapstructure:"nix_services" yaml:"nix_services,omitempty"`
	Partitioning    map[string]any `mapstructure:"partitioning" yaml:"partitioning,omitempty"`
	TemplateProfile string         `mapstructure:"template_profile" yaml:"template_profile,omitempty"`
}

// VMSpec describes the hardware shape and placement of a host.
type VMSpec struct {
	Name       string         `mapstructure:"name" yaml:"name"`
	Tenant     string         `mapstructure:"tenant" yaml:"tenant"`
	Hypervisor Hypervisor     `mapstructure:"hypervisor" yaml:"hypervisor"`
	BootMethod BootMethod     `mapstructure:"boot_method" yaml:"boot_method"`
	CPUs       int            `mapstructure:"cpus" yaml:"cpus"`
	MemoryMB   int            `mapstructure:"memory_mb" yaml:"memory_mb"`
	Disks      []DiskSpec     `mapstructure:"disks" yaml:"disks"`
	NetIfs     []NetIfSpec    `mapstructure:"netifs" yaml:"netifs"`
	Proxmox    map[string]any `mapstructure:"proxmox" yaml:"proxmox,omitempty"`
	Baremetal  map[string]any `mapstructure:"baremetal" yaml:"baremetal,omitempty"`
}

// ImageCatalog holds the installer image sources.
type ImageCatalog struct {
	UbuntuISOURL   string `mapstructure:"ubuntu_iso_url" yaml:"ubuntu_iso_url"`
	UbuntuImageURL string `mapstructure:"ubuntu_image_url" yaml:"ubuntu_image_url,omitempty"`
	NixOSISOURL    string `mapstructure:"nixos_iso_url" yaml:"nixos_iso_url"`
}

// PXEConfig holds the roots the PXE server playbook populates.
type PXEConfig struct {
	TFTPRoot string `mapstructure:"tftp_root" yaml:"tftp_root"`
	HTTPRoot string `mapstructure:"http_root" yaml:"http_root"`
}

// ArtifactStore configures the optional S3-compatible archive for run
// artifacts. A nil value disables archiving.
type ArtifactStore struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// Defaults is the base configuration layer shared by all hosts.
type Defaults struct {
	TerraformBackend map[string]any `mapstructure:"terraform_backend" yaml:"terraform_backend,omitempty"`
	ImageCatalog     ImageCatalog   `mapstructure:"image_catalog" yaml:"image_catalog"`
	ProxmoxProvider  map[string]any `mapstructure:"proxmox_provider" yaml:"proxmox_provider"`
	AnsibleDefaults  map[string]any `mapstructure:"ansible_defaults" yaml:"ansible_defaults,omitempty"`
	PXE              PXEConfig      `mapstructure:"pxe" yaml:"pxe"`
	ArtifactStore    *ArtifactStore `mapstructure:"artifact_store" yaml:"artifact_store,omitempty"`
}

// ProviderString returns a string value from the proxmox_provider map.
func (d Defaults) ProviderString(key string) string {
	v, ok := d.ProxmoxProvider[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Config is the fully merged configuration of a provisioning run.
type Config struct {
	Defaults Defaults                 `mapstructure:"defaults" yaml:"defaults"`
	VMs      []VMSpec                 `mapstructure:"vms" yaml:"vms"`
	Installs map[string]InstallConfig `mapstructure:"installs" yaml:"installs"`
}

// InstallFor returns the install config for a host.
func (c *Config) InstallFor(host string) (InstallConfig, bool) {
	ic, ok := c.Installs[host]
	return ic, ok
}

// SelectHosts filters c.VMs down to the named hosts. An empty filter
// selects every host. Unknown names are reported as an error by Validate
// callers; here they simply do not match.
func (c *Config) SelectHosts(names []string) []VMSpec {
	if len(names) == 0 {
		return c.VMs
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []VMSpec
	for _, vm := range c.VMs {
		if want[vm.Name] {
			out = append(out, vm)
		}
	}
	return out
}
