// Package services provisions end-user accounts in the self-hosted
// applications a profile enables (Nextcloud, GitLab, Jellyfin,
// Vaultwarden) after a deployment finishes.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"provizor/internal/runner"
)

// Credentials is one account to create in a service.
type Credentials struct {
	Username string
	Password string
	Email    string
}

// Provisioner creates a user in one service.
type Provisioner interface {
	Name() string
	// Ready reports whether the service can accept user creation.
	Ready(ctx context.Context) bool
	CreateUser(ctx context.Context, creds Credentials) error
}

// PasswordMode selects how per-service passwords are chosen.
type PasswordMode string

const (
	// PasswordUniversal uses one user-supplied password everywhere.
	PasswordUniversal PasswordMode = "user_provided"
	// PasswordGenerated creates a fresh random password per service.
	PasswordGenerated PasswordMode = "generated"
)

// Plan describes one provisioning run across the enabled services.
type Plan struct {
	Username string
	Domain   string
	Mode     PasswordMode
	// Password is the universal password; ignored in generated mode.
	Password string
}

// Email derives the account email from the username and domain.
func (p Plan) Email() string {
	domain := p.Domain
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("%s@%s", p.Username, domain)
}

// Result is the outcome for one service. Password is set only in
// generated mode so the caller can report it once.
type Result struct {
	Service  string
	Password string
	// Skipped marks a service that was not ready; no creation attempted.
	Skipped bool
	Err     error
}

// Summary collects per-service results.
type Summary []Result

// Failed reports whether any service failed.
func (s Summary) Failed() bool {
	for _, r := range s {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Format renders the OK/FAIL listing, with generated passwords shown
// once alongside their service.
func (s Summary) Format() string {
	var b strings.Builder
	b.WriteString("User provisioning summary:\n")
	for _, r := range s {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, "  [FAIL] %s: %s\n", r.Service, r.Err)
		case r.Skipped:
			fmt.Fprintf(&b, "  [SKIP] %s: not ready\n", r.Service)
		case r.Password != "":
			fmt.Fprintf(&b, "  [OK]   %s (password: %s)\n", r.Service, r.Password)
		default:
			fmt.Fprintf(&b, "  [OK]   %s\n", r.Service)
		}
	}
	return b.String()
}

// Provision creates the planned account in every provisioner. Services
// that are not ready are skipped with a warning; failures are
// per-service and one broken service never blocks the rest.
func Provision(ctx context.Context, provs []Provisioner, plan Plan, log *zap.Logger) (Summary, error) {
	var summary Summary
	for _, p := range provs {
		if !p.Ready(ctx) {
			log.Warn("service not ready, skipping",
				zap.String("service", p.Name()))
			summary = append(summary, Result{Service: p.Name(), Skipped: true})
			continue
		}

		creds := Credentials{
			Username: plan.Username,
			Password: plan.Password,
			Email:    plan.Email(),
		}
		res := Result{Service: p.Name()}
		if plan.Mode == PasswordGenerated {
			pw, err := GeneratePassword(16)
			if err != nil {
				return nil, fmt.Errorf("failed to generate password: %w", err)
			}
			creds.Password = pw
			res.Password = pw
		}

		log.Info("creating service user",
			zap.String("service", p.Name()), zap.String("user", creds.Username))
		if err := p.CreateUser(ctx, creds); err != nil {
			log.Warn("service user creation failed",
				zap.String("service", p.Name()), zap.Error(err))
			res.Err = err
			res.Password = ""
		}
		summary = append(summary, res)
	}
	return summary, nil
}

// Build assembles provisioners for the enabled services from the profile
// config. Unknown service names are skipped.
func Build(enabled []string, cfg map[string]string, run runner.Runner) []Provisioner {
	var provs []Provisioner
	for _, name := range enabled {
		switch name {
		case "nextcloud":
			provs = append(provs, &Nextcloud{
				Run:    run,
				Docker: !strings.EqualFold(cfg["DEPLOYMENT_TYPE"], "nixos"),
			})
		case "gitlab":
			base := cfg["GITLAB_EXTERNAL_URL"]
			if base == "" {
				base = "http://localhost:8080"
			}
			provs = append(provs, &GitLab{BaseURL: base, Token: cfg["GITLAB_ROOT_TOKEN"]})
		case "jellyfin":
			port := cfg["JELLYFIN_PORT"]
			if port == "" {
				port = "8096"
			}
			provs = append(provs, &Jellyfin{
				BaseURL: "http://localhost:" + port,
				APIKey:  cfg["JELLYFIN_API_KEY"],
			})
		case "vaultwarden":
			port := cfg["VAULTWARDEN_PORT"]
			if port == "" {
				port = "8081"
			}
			provs = append(provs, &Vaultwarden{
				BaseURL:    "http://localhost:" + port,
				AdminToken: cfg["VAULTWARDEN_ADMIN_TOKEN"],
			})
		}
	}
	return provs
}
