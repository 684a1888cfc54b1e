package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"provizor/internal/profiles"
	"provizor/internal/runner"
	"provizor/internal/services"
	"provizor/pkg/logger"
)

// ErrServicesFailed signals that at least one service user could not be
// created.
var ErrServicesFailed = errors.New("one or more services failed")

// UsersOptions selects where the profile env comes from.
type UsersOptions struct {
	// ProfileDir holds services.env and config.env as plain files.
	ProfileDir string
	// RepoPath and Branch read the profile from a branch of the profiles
	// repository instead.
	RepoPath string
	Branch   string

	Debug bool
}

// Users provisions service accounts (Nextcloud, GitLab, Jellyfin,
// Vaultwarden) for the universal user described by a deployment profile.
func Users(ctx context.Context, opts UsersOptions) error {
	if err := initLog(opts.Debug); err != nil {
		return err
	}
	log := logger.L()

	env, err := loadProfileEnv(opts)
	if err != nil {
		return err
	}

	plan, err := services.PlanFromEnv(env)
	if err != nil {
		return err
	}
	enabled := services.EnabledServices(env)
	if len(enabled) == 0 {
		fmt.Println("No services enabled, nothing to provision.")
		return nil
	}

	run := runner.NewExec(log, func(line string) { fmt.Println(line) })
	provs := services.Build(enabled, env, run)

	summary, err := services.Provision(ctx, provs, plan, log)
	if err != nil {
		return err
	}
	fmt.Print(summary.Format())

	if summary.Failed() {
		return ErrServicesFailed
	}
	return nil
}

// loadProfileEnv merges services.env and config.env from either a plain
// directory or a profiles repository branch.
func loadProfileEnv(opts UsersOptions) (map[string]string, error) {
	if opts.Branch != "" {
		repoPath := opts.RepoPath
		if repoPath == "" {
			repoPath = "profiles"
		}
		store, err := profiles.Open(repoPath, logger.L())
		if err != nil {
			return nil, err
		}
		prof, err := store.Load(opts.Branch)
		if err != nil {
			return nil, err
		}
		env := make(map[string]string, len(prof.Config)+len(prof.Services)+1)
		for k, v := range prof.Config {
			env[k] = v
		}
		for _, svc := range prof.Services {
			key := strings.ToUpper(strings.ReplaceAll(svc, "-", "_"))
			env["SERVICE_"+key+"_ENABLED"] = "true"
		}
		env["DEPLOYMENT_TYPE"] = prof.DeploymentType
		return env, nil
	}

	dir := opts.ProfileDir
	if dir == "" {
		dir = "."
	}
	env, err := services.ParseEnvFile(filepath.Join(dir, "services.env"))
	if err != nil {
		return nil, err
	}
	cfg, err := services.ParseEnvFile(filepath.Join(dir, "config.env"))
	if err != nil {
		return nil, err
	}
	for k, v := range cfg {
		env[k] = v
	}
	return env, nil
}
