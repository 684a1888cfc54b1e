// Package orchestrator drives the per-host provisioning pipeline and
// fans it out across hosts with a bounded worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"provizor/internal/ansible"
	"provizor/internal/artifacts"
	"provizor/internal/config"
	"provizor/internal/health"
	"provizor/internal/nixos"
	"provizor/internal/runner"
	"provizor/internal/tenant"
	"provizor/internal/terraform"
	"provizor/internal/util/async"
)

// Target names one pipeline stage group selectable per run.
type Target string

const (
	TargetInfra Target = "infra"
	TargetPXE   Target = "pxe"
	TargetOS    Target = "os"
	TargetPost  Target = "post"
)

// Stage identifies a pipeline step for progress reporting.
type Stage string

const (
	StageRender  Stage = "render"
	StageInfra   Stage = "infra"
	StageHealth  Stage = "health"
	StagePXE     Stage = "pxe"
	StageOS      Stage = "os"
	StagePost    Stage = "post"
	StageArchive Stage = "archive"
)

// EventState is the lifecycle of a stage on one host.
type EventState int

const (
	StateStarted EventState = iota
	StateDone
	StateWarned
	StateFailed
)

// Event is one progress notification, consumed by the TUI.
type Event struct {
	Host  string
	Stage Stage
	State EventState
	Err   error
}

// Options tunes a provisioning run.
type Options struct {
	// BuildDir holds one workdir per host.
	BuildDir string
	// FlakeRoot holds per-host NixOS flakes, <FlakeRoot>/<host>/flake.nix.
	FlakeRoot string
	// PlaybookDir holds the stock playbooks.
	PlaybookDir string

	// Hosts filters the run to these names; empty selects all.
	Hosts []string
	// Targets filters the stage groups; empty selects all.
	Targets []Target

	// Concurrency bounds the host fan-out. Zero means 4.
	Concurrency int
	// ApplyAttempts bounds terraform apply retries. Zero means 3.
	ApplyAttempts int
	// BootWait is the pause between apply and the health probe.
	BootWait time.Duration

	// Username overrides the connection user on every host.
	Username string
	// RunID labels archived artifacts. Empty generates one.
	RunID string

	// Notify receives progress events; nil disables reporting.
	Notify func(Event)
}

// HostResult is the outcome of one host's pipeline.
type HostResult struct {
	Host string `json:"host"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Hosts      []HostResult `json:"hosts"`
}

// Failed reports whether any host failed.
func (s Summary) Failed() bool {
	for _, h := range s.Hosts {
		if !h.OK {
			return true
		}
	}
	return false
}

// Format renders the summary as the usual OK/FAIL listing.
func (s Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provisioning summary (run %s):\n", s.RunID)
	for _, h := range s.Hosts {
		if h.OK {
			fmt.Fprintf(&b, "  [OK]   %s\n", h.Host)
		} else {
			fmt.Fprintf(&b, "  [FAIL] %s: %s\n", h.Host, h.Err)
		}
	}
	return b.String()
}

// Orchestrator wires the pipeline dependencies together.
type Orchestrator struct {
	cfg     *config.Config
	log     *zap.Logger
	tf      *terraform.Terraform
	play    *ansible.Player
	nix     *nixos.Installer
	check   *health.Checker
	tenants *tenant.Store
	// archiver is nil when no artifact store is configured.
	archiver *artifacts.Archiver

	opts Options
}

// New builds an Orchestrator. archiver may be nil.
func New(cfg *config.Config, run runner.Runner, tenants *tenant.Store,
	archiver *artifacts.Archiver, log *zap.Logger, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ApplyAttempts <= 0 {
		opts.ApplyAttempts = 3
	}
	if opts.BuildDir == "" {
		opts.BuildDir = "build"
	}
	if opts.FlakeRoot == "" {
		opts.FlakeRoot = "nix"
	}
	if opts.PlaybookDir == "" {
		opts.PlaybookDir = "playbooks"
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Orchestrator{
		cfg:      cfg,
		log:      log.Named("orchestrator"),
		tf:       terraform.New(run, log),
		play:     ansible.NewPlayer(run, log),
		nix:      nixos.NewInstaller(run, log),
		check:    health.NewChecker(log),
		tenants:  tenants,
		archiver: archiver,
		opts:     opts,
	}
}

// SetDebug raises verbosity on the wrapped CLIs.
func (o *Orchestrator) SetDebug(debug bool) {
	o.tf.Debug = debug
	o.play.Debug = debug
	o.nix.Debug = debug
}

// Run fans the pipeline out over the selected hosts and returns the
// collected summary. The returned error covers run-level problems only;
// per-host failures live in the summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	hosts := o.cfg.SelectHosts(o.opts.Hosts)
	if len(hosts) == 0 {
		if len(o.opts.Hosts) > 0 {
			return Summary{}, fmt.Errorf("no configured hosts match %v", o.opts.Hosts)
		}
		return Summary{}, errors.New("no hosts configured")
	}

	summary := Summary{RunID: o.opts.RunID, StartedAt: time.Now().UTC()}
	tasks := make([]async.Task, 0, len(hosts))
	for _, vm := range hosts {
		vm := vm
		tasks = append(tasks, async.Task{
			Name: vm.Name,
			Func: func(ctx context.Context) error { return o.provisionHost(ctx, vm) },
		})
	}

	results := async.RunBounded(ctx, o.opts.Concurrency, tasks)
	for _, r := range results {
		hr := HostResult{Host: r.Name, OK: r.Err == nil}
		if r.Err != nil {
			hr.Err = r.Err.Error()
		}
		summary.Hosts = append(summary.Hosts, hr)
	}
	summary.FinishedAt = time.Now().UTC()
	return summary, nil
}

func (o *Orchestrator) wants(t Target) bool {
	if len(o.opts.Targets) == 0 {
		return true
	}
	for _, want := range o.opts.Targets {
		if want == t {
			return true
		}
	}
	return false
}

func (o *Orchestrator) notify(host string, stage Stage, state EventState, err error) {
	if o.opts.Notify != nil {
		o.opts.Notify(Event{Host: host, Stage: stage, State: state, Err: err})
	}
}

// stage wraps fn with started/done/failed events.
func (o *Orchestrator) stage(host string, s Stage, fn func() error) error {
	o.notify(host, s, StateStarted, nil)
	if err := fn(); err != nil {
		o.notify(host, s, StateFailed, err)
		return err
	}
	o.notify(host, s, StateDone, nil)
	return nil
}

func (o *Orchestrator) provisionHost(ctx context.Context, vm config.VMSpec) error {
	log := o.log.With(zap.String("host", vm.Name))

	install, ok := o.cfg.InstallFor(vm.Name)
	if !ok {
		return fmt.Errorf("no install config for host %s", vm.Name)
	}

	keys, err := o.tenants.EnsureKeypair(vm.Tenant)
	if err != nil {
		return err
	}
	password, err := o.tenants.EnsurePassword(vm.Tenant)
	if err != nil {
		return err
	}

	hostDir := filepath.Join(o.opts.BuildDir, vm.Name)
	unlock, err := lockHost(hostDir)
	if err != nil {
		return err
	}
	defer unlock()

	rin := terraform.RenderInput{
		VM:               vm,
		Install:          install,
		Defaults:         o.cfg.Defaults,
		PublicKey:        keys.PublicKey,
		PrivateKeyPath:   keys.PrivateKeyPath,
		UsernameOverride: o.opts.Username,
	}

	hostIP := staticIP(install)

	if vm.Hypervisor == config.HypervisorProxmox {
		tfDir := filepath.Join(hostDir, "tf")
		if err := o.stage(vm.Name, StageRender, func() error {
			return terraform.Render(tfDir, rin)
		}); err != nil {
			return err
		}

		if o.wants(TargetInfra) {
			var outs terraform.Outputs
			if err := o.stage(vm.Name, StageInfra, func() error {
				if err := o.tf.Init(ctx, tfDir); err != nil {
					return err
				}
				outs, err = o.tf.Apply(ctx, tfDir, o.opts.ApplyAttempts)
				return err
			}); err != nil {
				return err
			}

			if install.Network.UseDHCP() {
				ip, ok := outs.VMIP()
				if !ok {
					return fmt.Errorf("host %s: DHCP address not reported yet, re-run infra once the guest agent is up", vm.Name)
				}
				hostIP = ip
			}

			o.healthCheck(ctx, vm, install, rin.Username(), keys.PrivateKeyPath, hostIP, log)
		}
	}
	if hostIP == "" {
		// Baremetal and DHCP hosts outside the infra stage resolve by name.
		hostIP = vm.Name
	}

	ansDir := filepath.Join(hostDir, "ansible")
	var inv ansible.Rendered
	if err := o.stage(vm.Name, StageRender, func() error {
		in := ansible.InventoryInput{
			VM:               vm,
			Install:          install,
			Defaults:         o.cfg.Defaults,
			PublicKey:        keys.PublicKey,
			PrivateKeyPath:   keys.PrivateKeyPath,
			Password:         password,
			UsernameOverride: o.opts.Username,
		}
		in.Install.Network.AddressCIDR = hostIP
		inv, err = ansible.RenderInventory(ansDir, in)
		return err
	}); err != nil {
		return err
	}

	needsPXE := vm.Hypervisor == config.HypervisorBaremetal || vm.BootMethod == config.BootPXE
	if needsPXE && o.wants(TargetPXE) {
		if err := o.stage(vm.Name, StagePXE, func() error {
			return o.play.Play(ctx, o.playbook("pxe.yaml"), inv)
		}); err != nil {
			return err
		}
	}

	if o.wants(TargetOS) {
		if err := o.stage(vm.Name, StageOS, func() error {
			return o.installOS(ctx, vm, install, hostIP, keys, inv, log)
		}); err != nil {
			return err
		}
	}

	if o.wants(TargetPost) {
		if err := o.stage(vm.Name, StagePost, func() error {
			return o.play.Play(ctx, o.playbook("post.yaml"), inv)
		}); err != nil {
			return err
		}
	}

	if o.archiver != nil {
		if err := o.stage(vm.Name, StageArchive, func() error {
			return o.archiver.ArchiveHostDir(ctx, o.opts.RunID, vm.Name, hostDir)
		}); err != nil {
			return err
		}
	}
	return nil
}

// healthCheck is advisory: a host that runs cloud-init slowly still gets
// its playbooks, which retry connections on their own.
func (o *Orchestrator) healthCheck(ctx context.Context, vm config.VMSpec,
	install config.InstallConfig, user, keyPath, hostIP string, log *zap.Logger) {
	o.notify(vm.Name, StageHealth, StateStarted, nil)
	if o.opts.BootWait > 0 {
		select {
		case <-ctx.Done():
			o.notify(vm.Name, StageHealth, StateWarned, ctx.Err())
			return
		case <-time.After(o.opts.BootWait):
		}
	}
	err := o.check.Wait(ctx, health.Target{
		Addr:    hostIP,
		User:    user,
		KeyPath: keyPath,
		OS:      install.OS,
	})
	if err != nil {
		log.Warn("health check failed, continuing", zap.Error(err))
		o.notify(vm.Name, StageHealth, StateWarned, err)
		return
	}
	o.notify(vm.Name, StageHealth, StateDone, nil)
}

func (o *Orchestrator) installOS(ctx context.Context, vm config.VMSpec,
	install config.InstallConfig, hostIP string, keys tenant.Keypair,
	inv ansible.Rendered, log *zap.Logger) error {
	switch install.OS {
	case config.OSNixOS:
		err := o.nix.Install(ctx, nixos.InstallInput{
			FlakeDir:       filepath.Join(o.opts.FlakeRoot, vm.Name),
			FlakeAttr:      vm.Name,
			Target:         "root@" + hostIP,
			PrivateKeyPath: keys.PrivateKeyPath,
		})
		if err == nil {
			return nil
		}
		log.Warn("nixos-anywhere unavailable, falling back to playbook", zap.Error(err))
		return o.play.Play(ctx, o.playbook("nixos.yaml"), inv)
	default:
		return o.play.Play(ctx, o.playbook("ubuntu.yaml"), inv)
	}
}

func (o *Orchestrator) playbook(name string) string {
	return filepath.Join(o.opts.PlaybookDir, name)
}

// staticIP returns the configured address without its prefix length, or
// empty for DHCP hosts.
func staticIP(install config.InstallConfig) string {
	if install.Network.UseDHCP() {
		return ""
	}
	addr := install.Network.AddressCIDR
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		addr = addr[:i]
	}
	return addr
}

// lockHost takes the per-host build lock. Concurrent runs touching the
// same host fail fast instead of corrupting each other's workdirs.
func lockHost(hostDir string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(hostDir), 0o755); err != nil {
		return nil, err
	}
	lockPath := hostDir + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("host workdir %s is locked by another run (remove %s if stale)", hostDir, lockPath)
		}
		return nil, err
	}
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
