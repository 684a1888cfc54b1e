package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"provizor/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the configuration wizard.
	runWizard = config.RunWizard

	// writeWizardFiles writes the scaffolded config files.
	writeWizardFiles = (*config.WizardResult).WriteFiles
)

// Init runs the configuration wizard and scaffolds the three config layers
// in the output directory.
func Init(ctx context.Context, outputDir string) error {
	if outputDir == "" {
		outputDir = "."
	}
	for _, name := range []string{"defaults.yaml", "vm_specs.yaml", "install_config.yaml"} {
		if fileExists(filepath.Join(outputDir, name)) {
			fmt.Printf("Warning: %s already exists and will be overwritten.\n", filepath.Join(outputDir, name))
		}
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := writeWizardFiles(result, outputDir); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputDir, result)
	return nil
}

func printWelcome() {
	fmt.Println()
	fmt.Println("provizor - VM and bare-metal provisioning")
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Println("This wizard scaffolds the three configuration layers")
	fmt.Println("(defaults, vm specs, install config) for a first host.")
	fmt.Println()
}

func printInitSuccess(outputDir string, result *config.WizardResult) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  Directory: %s\n", outputDir)
	fmt.Println()
	fmt.Println("Host Summary")
	fmt.Println("------------")
	fmt.Printf("  Name:     %s\n", result.HostName)
	fmt.Printf("  Platform: %s\n", result.Hypervisor)
	fmt.Printf("  OS:       %s\n", result.OS)
	fmt.Printf("  Size:     %d vCPU, %d MB RAM, %d GB disk\n", result.CPUs, result.MemoryMB, result.DiskGB)
	if result.DHCP {
		fmt.Println("  Network:  DHCP")
	} else {
		fmt.Printf("  Network:  %s via %s\n", result.AddressCIDR, result.Gateway)
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  provizor plan     # review what terraform would create")
	fmt.Println("  provizor apply    # provision the host")
}
