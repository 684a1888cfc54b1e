package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a profile branch does not exist.
var ErrNotFound = errors.New("profile not found")

// ErrIncomplete is returned when a profile branch is missing one of its
// env files.
var ErrIncomplete = errors.New("profile is incomplete")

var branchNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	servicesFile = "services.env"
	configFile   = "config.env"
)

// Store wraps the profiles git repository. Branch names follow
// <username>-<config>; main holds no profile.
type Store struct {
	repo *git.Repository
	path string
	log  *zap.Logger

	// Checkouts mutate the worktree, so Save is serialized.
	mu sync.Mutex
}

// Open opens an existing profiles repository.
func Open(path string, log *zap.Logger) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles repo at %s: %w", path, err)
	}
	return &Store{repo: repo, path: path, log: log.Named("profiles")}, nil
}

// InitRepo creates a fresh profiles repository with an initial commit on
// main, so branches have a base to fork from.
func InitRepo(path string, log *zap.Logger) (*Store, error) {
	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init profiles repo: %w", err)
	}

	readme := filepath.Join(path, "README.md")
	if err := os.WriteFile(readme, []byte("# Profiles\n\nOne branch per user configuration.\n"), 0o644); err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if _, err := wt.Add("README.md"); err != nil {
		return nil, err
	}
	if _, err := wt.Commit("Initial commit", &git.CommitOptions{Author: signature()}); err != nil {
		return nil, fmt.Errorf("failed to create initial commit: %w", err)
	}
	return &Store{repo: repo, path: path, log: log.Named("profiles")}, nil
}

func signature() *object.Signature {
	return &object.Signature{Name: "provizor", Email: "provizor@localhost", When: time.Now()}
}

// ListBranches returns every profile branch, excluding main and master.
func (s *Store) ListBranches() ([]string, error) {
	iter, err := s.repo.Branches()
	if err != nil {
		return nil, err
	}
	var out []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if name != "main" && name != "master" {
			out = append(out, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// UserConfigs returns the config names belonging to a user.
func (s *Store) UserConfigs(username string) ([]string, error) {
	branches, err := s.ListBranches()
	if err != nil {
		return nil, err
	}
	prefix := username + "-"
	var out []string
	for _, b := range branches {
		if strings.HasPrefix(b, prefix) {
			out = append(out, strings.TrimPrefix(b, prefix))
		}
	}
	return out, nil
}

// Profile is a parsed user configuration.
type Profile struct {
	Branch         string            `json:"branch"`
	DeploymentType string            `json:"deployment_type"`
	Services       []string          `json:"services"`
	Config         map[string]string `json:"config"`
}

// Load reads a profile straight from the branch tree, without touching
// the worktree.
func (s *Store) Load(branch string) (*Profile, error) {
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, branch)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	servicesEnv, err := treeFile(tree, servicesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, servicesFile)
	}
	configEnv, err := treeFile(tree, configFile)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, configFile)
	}

	p := &Profile{Branch: branch, Config: map[string]string{}}
	for key, value := range parseEnv(servicesEnv) {
		p.Config[key] = value
		if strings.HasPrefix(key, "SERVICE_") && strings.HasSuffix(key, "_ENABLED") &&
			strings.EqualFold(value, "true") {
			id := strings.TrimSuffix(strings.TrimPrefix(key, "SERVICE_"), "_ENABLED")
			p.Services = append(p.Services, strings.ToLower(id))
		}
	}
	for key, value := range parseEnv(configEnv) {
		p.Config[key] = value
	}
	sort.Strings(p.Services)

	p.DeploymentType = p.Config["DEPLOYMENT_TYPE"]
	if p.DeploymentType == "" {
		p.DeploymentType = "docker"
	}
	return p, nil
}

func treeFile(tree *object.Tree, name string) (string, error) {
	f, err := tree.File(name)
	if err != nil {
		return "", err
	}
	return f.Contents()
}

func parseEnv(content string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return out
}

// Provisioning is the user-provisioning block of a profile form.
type Provisioning struct {
	Username                  string
	Approach                  string // generated or user_provided
	Password                  string
	VaultwardenMasterPassword string
	AutoProvision             bool
}

// Form is one create-or-update profile submission.
type Form struct {
	Username       string
	ConfigName     string
	DeploymentType string
	// Services maps service ID to enabled.
	Services map[string]bool
	// Values holds field values keyed by field name.
	Values       map[string]string
	Provisioning Provisioning
}

// Branch returns the branch name for the form.
func (f Form) Branch() string {
	return f.Username + "-" + f.ConfigName
}

// Save writes the profile branch: created from main when missing, both
// env files regenerated from the catalog, committed, worktree returned
// to main.
func (s *Store) Save(cat *Catalog, form Form) (string, error) {
	if form.ConfigName == "" || form.DeploymentType == "" {
		return "", errors.New("configuration name and deployment type are required")
	}
	branch := form.Branch()
	if !branchNameRE.MatchString(branch) {
		return "", fmt.Errorf("invalid profile name %q: only letters, numbers, hyphens and underscores are allowed", branch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mainRef, err := s.mainRef()
	if err != nil {
		return "", err
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return "", err
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	_, err = s.repo.Reference(branchRef, true)
	create := err != nil
	co := &git.CheckoutOptions{Branch: branchRef}
	if create {
		co.Create = true
		co.Hash = mainRef.Hash()
	}
	if err := wt.Checkout(co); err != nil {
		return "", fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	// Leave the worktree on main whatever happens below.
	defer func() {
		if cerr := wt.Checkout(&git.CheckoutOptions{Branch: mainRef.Name(), Force: true}); cerr != nil {
			s.log.Warn("failed to return to main branch", zap.Error(cerr))
		}
	}()

	if err := s.writeEnvFiles(cat, form); err != nil {
		return "", err
	}
	if _, err := wt.Add(servicesFile); err != nil {
		return "", err
	}
	if _, err := wt.Add(configFile); err != nil {
		return "", err
	}
	_, err = wt.Commit("Update configuration for "+branch, &git.CommitOptions{
		Author:            signature(),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit profile: %w", err)
	}

	s.log.Info("profile saved", zap.String("branch", branch))
	return branch, nil
}

func (s *Store) mainRef() (*plumbing.Reference, error) {
	for _, name := range []string{"main", "master"} {
		ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(name), true)
		if err == nil {
			return ref, nil
		}
	}
	return nil, errors.New("profiles repo has no main branch")
}

func (s *Store) writeEnvFiles(cat *Catalog, form Form) error {
	var sb strings.Builder
	sb.WriteString("# Service Activation Configuration\n")
	fmt.Fprintf(&sb, "DEPLOYMENT_TYPE=%s\n\n", form.DeploymentType)
	for _, svc := range cat.Services {
		fmt.Fprintf(&sb, "SERVICE_%s_ENABLED=%t\n", strings.ToUpper(svc.ID), form.Services[svc.ID])
	}
	if err := os.WriteFile(filepath.Join(s.path, servicesFile), []byte(sb.String()), 0o644); err != nil {
		return err
	}

	var cb strings.Builder
	cb.WriteString("# Service Configuration Parameters\n\n")

	prov := form.Provisioning
	if prov.Username != "" || prov.Approach == "user_provided" {
		cb.WriteString("# --- User Provisioning Configuration ---\n")
		fmt.Fprintf(&cb, "UNIVERSAL_USERNAME=%q\n", prov.Username)
		approach := prov.Approach
		if approach == "" {
			approach = "generated"
		}
		fmt.Fprintf(&cb, "PASSWORD_APPROACH=%q\n", approach)
		fmt.Fprintf(&cb, "AUTO_PROVISION_USERS=%q\n", fmt.Sprintf("%t", prov.AutoProvision))
		if approach == "user_provided" && prov.Password != "" {
			fmt.Fprintf(&cb, "UNIVERSAL_PASSWORD=%q\n", prov.Password)
		}
		if approach == "generated" && prov.VaultwardenMasterPassword != "" {
			fmt.Fprintf(&cb, "VAULTWARDEN_MASTER_PASSWORD=%q\n", prov.VaultwardenMasterPassword)
		}
		cb.WriteString("\n")
	}

	for _, field := range cat.GlobalFields[form.DeploymentType] {
		cb.WriteString(renderField(field, form.Values))
	}
	for _, svc := range cat.Services {
		if !form.Services[svc.ID] {
			continue
		}
		fmt.Fprintf(&cb, "\n# --- %s Configuration ---\n", svc.Name)
		for _, field := range svc.Fields(form.DeploymentType) {
			cb.WriteString(renderField(field, form.Values))
		}
	}
	return os.WriteFile(filepath.Join(s.path, configFile), []byte(cb.String()), 0o644)
}

func renderField(field Field, values map[string]string) string {
	value, ok := values[field.Name]
	if field.Type == "checkbox" {
		if ok && (value == "true" || value == "on") {
			value = "true"
		} else {
			value = "false"
		}
	} else if !ok {
		value = field.Default
	}
	return fmt.Sprintf("%s=%q\n", field.Name, value)
}
