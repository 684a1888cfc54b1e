package handlers

import (
	"fmt"
	"path/filepath"
)

// Keys ensures a tenant's credentials exist and prints where they live.
func Keys(tenantDir, tenantName string) error {
	if err := initLog(false); err != nil {
		return err
	}
	if tenantName == "" {
		tenantName = "default"
	}

	store := newTenantStore(RunOptions{TenantDir: tenantDir})
	kp, err := store.EnsureKeypair(tenantName)
	if err != nil {
		return err
	}
	if _, err := store.EnsurePassword(tenantName); err != nil {
		return err
	}

	fmt.Printf("Tenant: %s\n", tenantName)
	fmt.Printf("  Private key: %s\n", kp.PrivateKeyPath)
	fmt.Printf("  Public key:  %s\n", kp.PublicKeyPath)
	fmt.Printf("  Password:    %s\n", filepath.Join(store.Dir(tenantName), "password.txt"))
	fmt.Printf("  Authorized:  %s\n", kp.PublicKey)
	return nil
}
