package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provizor/internal/config"
)

func TestInit_WritesWizardResult(t *testing.T) {
	saveAndRestoreFactories(t)

	fileExists = func(_ string) bool { return false }
	runWizard = func(_ context.Context) (*config.WizardResult, error) {
		return &config.WizardResult{
			HostName:   "web-01",
			Hypervisor: config.HypervisorProxmox,
			OS:         config.OSUbuntu,
			CPUs:       2,
			MemoryMB:   4096,
			DiskGB:     40,
			DHCP:       true,
		}, nil
	}

	var wroteDir string
	writeWizardFiles = func(_ *config.WizardResult, dir string) error {
		wroteDir = dir
		return nil
	}

	dir := t.TempDir()
	require.NoError(t, Init(context.Background(), dir))
	assert.Equal(t, dir, wroteDir)
}

func TestInit_WizardErrorIsReturned(t *testing.T) {
	saveAndRestoreFactories(t)

	fileExists = func(_ string) bool { return false }
	runWizard = func(_ context.Context) (*config.WizardResult, error) {
		return nil, errors.New("user aborted")
	}

	err := Init(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user aborted")
}

func TestInit_WriteErrorIsWrapped(t *testing.T) {
	saveAndRestoreFactories(t)

	fileExists = func(_ string) bool { return false }
	runWizard = func(_ context.Context) (*config.WizardResult, error) {
		return &config.WizardResult{HostName: "web-01", DHCP: true}, nil
	}
	writeWizardFiles = func(_ *config.WizardResult, _ string) error {
		return errors.New("disk full")
	}

	err := Init(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config")
}
