package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"provizor/internal/orchestrator"
	"provizor/internal/runner"
	"provizor/pkg/logger"
)

// ErrHostsFailed signals that at least one host did not provision cleanly.
var ErrHostsFailed = errors.New("one or more hosts failed")

// Apply runs the full provisioning pipeline over the selected hosts.
//
// The workflow per host: ensure tenant credentials, render the terraform
// workdir, apply infrastructure, health-check the guest, render the ansible
// inventory, run the OS and post playbooks (nixos-anywhere first on NixOS),
// then archive the workdir when an artifact store is configured. Hosts fan
// out concurrently; the summary is printed at the end and the command fails
// if any host failed.
func Apply(ctx context.Context, opts RunOptions) error {
	if err := initLog(opts.Debug); err != nil {
		return err
	}
	log := logger.L()

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}
	targets, err := parseTargets(opts.Targets)
	if err != nil {
		return err
	}
	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	hosts := cfg.SelectHosts(opts.Hosts)
	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.Name)
	}

	orchOpts := orchestrator.Options{
		BuildDir:    opts.BuildDir,
		FlakeRoot:   opts.FlakeRoot,
		PlaybookDir: opts.PlaybookDir,
		Hosts:       opts.Hosts,
		Targets:     targets,
		Concurrency: opts.Concurrency,
		Username:    opts.Username,
		RunID:       runID,
	}

	start := func(notify func(orchestrator.Event), sink runner.LineSink) (orchestrator.Summary, error) {
		orchOpts.Notify = notify
		run := runner.NewExec(log, sink)
		orch := orchestrator.New(cfg, run, newTenantStore(opts), archiver, log, orchOpts)
		orch.SetDebug(opts.Debug)
		return orch.Run(ctx)
	}

	var summary orchestrator.Summary
	if !opts.NoTUI && stdoutIsTerminal() {
		summary, err = runDashboard(ctx, runID, names, start)
	} else {
		summary, err = start(nil, func(line string) { fmt.Println(line) })
	}
	if err != nil {
		return err
	}

	fmt.Print(summary.Format())

	if archiver != nil {
		data, merr := json.MarshalIndent(summary, "", "  ")
		if merr == nil {
			merr = archiver.PutSummary(ctx, runID, data)
		}
		if merr != nil {
			log.Warn("failed to archive run summary", zap.Error(merr))
		}
	}

	if summary.Failed() {
		return ErrHostsFailed
	}
	return nil
}
