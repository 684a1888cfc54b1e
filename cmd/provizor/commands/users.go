package commands

import (
	"github.com/spf13/cobra"

	"provizor/cmd/provizor/handlers"
)

// Users returns the command that provisions service user accounts.
func Users() *cobra.Command {
	var opts handlers.UsersOptions

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Provision service accounts from a deployment profile",
		Long: `Provision service accounts from a deployment profile.

Reads the profile's services.env and config.env, then creates the
universal user in every enabled service (Nextcloud, GitLab, Jellyfin,
Vaultwarden). Generated passwords are printed once in the summary.

Examples:
  # From env files in the current directory
  provizor users

  # From a branch of the profiles repository
  provizor users --repo ./profiles --branch alice-media`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Users(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ProfileDir, "profile-dir", "", "Directory holding services.env and config.env (default: .)")
	cmd.Flags().StringVar(&opts.RepoPath, "repo", "", "Profiles repository path (with --branch)")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "Profile branch to read instead of env files")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Verbose output")

	return cmd
}
