package web

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TenantSummary is one row of the admin tenant overview.
type TenantSummary struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Runtime string `json:"runtime"`
}

// AdminStore reads and updates the deployment config repository that ties
// tenants to infrastructure definitions.
type AdminStore struct {
	path string
	log  *zap.Logger
}

// NewAdminStore returns a store rooted at the config repository path.
func NewAdminStore(path string, log *zap.Logger) *AdminStore {
	return &AdminStore{path: path, log: log}
}

// Infrastructures lists the infrastructure definitions available for
// linking, one per infrastructure/*.yml file.
func (a *AdminStore) Infrastructures() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.path, "infrastructure"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list infrastructures: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names, nil
}

// Tenants summarises every tenant directory with its deployment target and
// runtime from general.conf.yml.
func (a *AdminStore) Tenants() ([]TenantSummary, error) {
	entries, err := os.ReadDir(filepath.Join(a.path, "tenants"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var tenants []TenantSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		summary := TenantSummary{Name: e.Name(), Target: "Not Found", Runtime: "Not Found"}
		general, err := a.readGeneral(e.Name())
		if err == nil {
			summary.Target = stringOr(general, "deployment_target", "Not Set")
			summary.Runtime = stringOr(general, "deployment_runtime", "Not Set")
		}
		tenants = append(tenants, summary)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].Name < tenants[j].Name })
	return tenants, nil
}

// LinkTarget points a tenant at an infrastructure definition by rewriting
// deployment_target in its general.conf.yml and committing the change.
func (a *AdminStore) LinkTarget(tenant, infra string) error {
	general, err := a.readGeneral(tenant)
	if err != nil {
		return fmt.Errorf("general config for tenant %q not found", tenant)
	}
	general["deployment_target"] = infra

	out, err := yaml.Marshal(general)
	if err != nil {
		return fmt.Errorf("encode general config: %w", err)
	}
	rel := filepath.Join("tenants", tenant, "general.conf.yml")
	if err := os.WriteFile(filepath.Join(a.path, rel), out, 0o644); err != nil {
		return fmt.Errorf("write general config: %w", err)
	}

	if err := a.commit(rel, fmt.Sprintf("chore(admin): link tenant %s to %s", tenant, infra)); err != nil {
		return err
	}
	a.log.Info("tenant linked",
		zap.String("tenant", tenant),
		zap.String("target", infra))
	return nil
}

func (a *AdminStore) readGeneral(tenant string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(a.path, "tenants", tenant, "general.conf.yml"))
	if err != nil {
		return nil, err
	}
	general := map[string]any{}
	if err := yaml.Unmarshal(data, &general); err != nil {
		return nil, err
	}
	return general, nil
}

func (a *AdminStore) commit(rel, message string) error {
	repo, err := git.PlainOpen(a.path)
	if err != nil {
		return fmt.Errorf("open config repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "provizor", Email: "provizor@localhost", When: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", rel, err)
	}
	return nil
}

func stringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
