package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"provizor/internal/runner"
	"provizor/internal/terraform"
	"provizor/pkg/logger"
)

// Destroy tears down the infrastructure of the selected hosts by running
// terraform destroy in each rendered workdir.
func Destroy(ctx context.Context, opts RunOptions) error {
	if err := initLog(opts.Debug); err != nil {
		return err
	}
	log := logger.L()

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	run := runner.NewExec(log, func(line string) { fmt.Println(line) })
	tf := terraform.New(run, log)
	tf.Debug = opts.Debug

	hosts, err := selectProxmoxHosts(cfg, opts.Hosts, log)
	if err != nil {
		return err
	}
	for _, vm := range hosts {
		tfDir := hostTFDir(opts, vm.Name)
		if _, err := os.Stat(filepath.Join(tfDir, "main.tf")); err != nil {
			log.Info("no rendered workdir, skipping", zap.String("host", vm.Name))
			continue
		}
		if err := tf.Destroy(ctx, tfDir); err != nil {
			return fmt.Errorf("destroy %s: %w", vm.Name, err)
		}
		fmt.Printf("Destroyed %s\n", vm.Name)
	}
	return nil
}
