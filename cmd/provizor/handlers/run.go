// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"provizor/internal/artifacts"
	"provizor/internal/config"
	"provizor/internal/orchestrator"
	"provizor/internal/platform/s3"
	"provizor/internal/runner"
	"provizor/internal/tenant"
	"provizor/internal/ui/tui"
	"provizor/pkg/logger"
)

const (
	defaultDefaultsPath = "defaults.yaml"
	defaultVMSpecsPath  = "vm_specs.yaml"
	defaultInstallPath  = "install_config.yaml"
	defaultTenantDir    = "tenants"
)

// RunOptions carries the flags shared by the provisioning commands.
type RunOptions struct {
	DefaultsPath string
	VMSpecsPath  string
	InstallPath  string

	Hosts       []string
	Targets     []string
	Concurrency int
	Username    string

	TenantDir   string
	BuildDir    string
	FlakeRoot   string
	PlaybookDir string

	Debug bool
	NoTUI bool
}

// Factory function variables - can be replaced in tests for dependency
// injection.
var (
	// loadConfigLayers loads and merges the three config layers.
	loadConfigLayers = config.Load

	// newArtifactStore builds the S3 client for run archiving.
	newArtifactStore = func(ctx context.Context, store config.ArtifactStore) (artifacts.Store, error) {
		return s3.NewClient(ctx, store)
	}

	// stdoutIsTerminal reports whether stdout is a TTY.
	stdoutIsTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd())
	}

	// newProgram builds the Bubble Tea program for the dashboard.
	newProgram = func(ctx context.Context, model tea.Model) dashboardProgram {
		return tea.NewProgram(model, tea.WithContext(ctx))
	}
)

// dashboardProgram is the subset of tea.Program the dashboard uses.
type dashboardProgram interface {
	Send(msg tea.Msg)
	Run() (tea.Model, error)
}

func (o RunOptions) configPaths() (string, string, string) {
	defaults, vmSpecs, install := o.DefaultsPath, o.VMSpecsPath, o.InstallPath
	if defaults == "" {
		defaults = defaultDefaultsPath
	}
	if vmSpecs == "" {
		vmSpecs = defaultVMSpecsPath
	}
	if install == "" {
		install = defaultInstallPath
	}
	return defaults, vmSpecs, install
}

func (o RunOptions) tenantDir() string {
	if o.TenantDir == "" {
		return defaultTenantDir
	}
	return o.TenantDir
}

// initLog configures the process logger for a CLI run.
func initLog(debug bool) error {
	level := "info"
	if debug {
		level = "debug"
	}
	return logger.Init(level, true)
}

// loadRunConfig merges the configuration layers. Validation happens
// inside config.Load.
func loadRunConfig(o RunOptions) (*config.Config, error) {
	defaults, vmSpecs, install := o.configPaths()
	return loadConfigLayers(defaults, vmSpecs, install)
}

// parseTargets converts --targets values into pipeline stage groups.
func parseTargets(raw []string) ([]orchestrator.Target, error) {
	var targets []orchestrator.Target
	for _, r := range raw {
		t := orchestrator.Target(strings.ToLower(strings.TrimSpace(r)))
		switch t {
		case orchestrator.TargetInfra, orchestrator.TargetPXE, orchestrator.TargetOS, orchestrator.TargetPost:
			targets = append(targets, t)
		default:
			return nil, fmt.Errorf("unknown target %q (valid: infra, pxe, os, post)", r)
		}
	}
	return targets, nil
}

// buildArchiver wires the artifact store when one is configured. A nil
// return with nil error means archiving is disabled.
func buildArchiver(ctx context.Context, cfg *config.Config) (*artifacts.Archiver, error) {
	if cfg.Defaults.ArtifactStore == nil {
		return nil, nil
	}
	store, err := newArtifactStore(ctx, *cfg.Defaults.ArtifactStore)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	return artifacts.New(store, logger.L()), nil
}

// newTenantStore builds the tenant credential store for a run.
func newTenantStore(o RunOptions) *tenant.Store {
	return tenant.NewStore(o.tenantDir(), logger.L())
}

// runDashboard drives a provisioning run through the TUI. start receives
// the event and log callbacks wired to the dashboard and blocks until the
// run finishes.
func runDashboard(ctx context.Context, runID string, hosts []string,
	start func(notify func(orchestrator.Event), sink runner.LineSink) (orchestrator.Summary, error)) (orchestrator.Summary, error) {

	p := newProgram(ctx, tui.NewModel(runID, hosts))

	var summary orchestrator.Summary
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = start(
			func(e orchestrator.Event) { p.Send(tui.StageMsg{Event: e}) },
			func(line string) { p.Send(tui.LogMsg{Line: line}) },
		)
		if runErr != nil {
			p.Send(tui.ErrMsg{Err: runErr})
			return
		}
		p.Send(tui.DoneMsg{Summary: summary})
	}()

	if _, err := p.Run(); err != nil {
		<-done
		return summary, err
	}
	<-done
	return summary, runErr
}
