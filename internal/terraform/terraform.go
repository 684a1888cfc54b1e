package terraform

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"provizor/internal/runner"
	"provizor/internal/util/retry"
)

// Terraform drives the terraform binary inside rendered workdirs.
type Terraform struct {
	run runner.Runner
	log *zap.Logger

	// Debug turns on provider debug logging (TF_LOG) inside workdirs.
	Debug bool

	// RetryDelay is the base wait between apply attempts, growing
	// linearly. Exposed so tests do not sleep.
	RetryDelay time.Duration
}

// New builds a Terraform wrapper around the given runner.
func New(run runner.Runner, log *zap.Logger) *Terraform {
	if log == nil {
		log = zap.NewNop()
	}
	return &Terraform{run: run, log: log, RetryDelay: 15 * time.Second}
}

func (t *Terraform) env(dir string) map[string]string {
	if !t.Debug {
		return nil
	}
	return map[string]string{
		"TF_LOG":      "DEBUG",
		"TF_LOG_PATH": dir + "/terraform-debug.log",
	}
}

func (t *Terraform) exec(ctx context.Context, dir string, args ...string) error {
	return t.run.Run(ctx, runner.Spec{
		Name: "terraform",
		Args: args,
		Dir:  dir,
		Env:  t.env(dir),
	})
}

// Init runs terraform init and validate in the workdir.
func (t *Terraform) Init(ctx context.Context, dir string) error {
	t.log.Info("initializing terraform", zap.String("dir", dir))
	if err := t.exec(ctx, dir, "init", "-upgrade"); err != nil {
		return fmt.Errorf("terraform init: %w", err)
	}
	if err := t.exec(ctx, dir, "validate"); err != nil {
		return fmt.Errorf("terraform validate: %w", err)
	}
	return nil
}

// Plan runs terraform plan, writing the plan file used by Apply.
func (t *Terraform) Plan(ctx context.Context, dir string) error {
	if err := t.exec(ctx, dir, "plan", "-input=false", "-out=tfplan"); err != nil {
		return fmt.Errorf("terraform plan: %w", err)
	}
	return nil
}

// Apply provisions the workdir with bounded retries. A failed attempt is
// followed by a best-effort destroy so the next attempt starts from a
// clean slate, then a linearly growing wait. On success the workdir's
// outputs are returned.
func (t *Terraform) Apply(ctx context.Context, dir string, attempts int) (Outputs, error) {
	if attempts < 1 {
		attempts = 1
	}

	err := retry.Do(ctx, func() error {
		if err := t.Plan(ctx, dir); err != nil {
			return err
		}
		if err := t.exec(ctx, dir, "apply", "-auto-approve", "-input=false", "tfplan"); err != nil {
			return fmt.Errorf("terraform apply: %w", err)
		}
		return nil
	},
		retry.WithAttempts(attempts),
		retry.WithDelay(t.RetryDelay),
		retry.WithMultiplier(2),
		retry.WithOnRetry(func(attempt int, cause error) error {
			t.log.Warn("terraform apply failed, cleaning up before retry",
				zap.String("dir", dir), zap.Int("attempt", attempt), zap.Error(cause))
			if derr := t.Destroy(ctx, dir); derr != nil {
				t.log.Warn("cleanup destroy failed, retrying anyway", zap.Error(derr))
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	t.log.Info("terraform apply completed", zap.String("dir", dir))
	return t.Output(ctx, dir)
}

// Destroy tears down everything in the workdir.
func (t *Terraform) Destroy(ctx context.Context, dir string) error {
	if err := t.exec(ctx, dir, "destroy", "-auto-approve", "-input=false"); err != nil {
		return fmt.Errorf("terraform destroy: %w", err)
	}
	return nil
}

// Output reads the workdir's outputs via terraform output -json. A
// failure to read outputs is not fatal to a run; callers get an empty
// map alongside the error.
func (t *Terraform) Output(ctx context.Context, dir string) (Outputs, error) {
	raw, err := t.run.Capture(ctx, runner.Spec{
		Name: "terraform",
		Args: []string{"output", "-json"},
		Dir:  dir,
		Env:  t.env(dir),
	})
	if err != nil {
		return Outputs{}, fmt.Errorf("terraform output: %w", err)
	}
	return ParseOutputs(raw)
}
