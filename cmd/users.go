package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alertfilter/storage"

	"github.com/spf13/cobra"
)

// NewUsersCmd creates the 'users' command
func NewUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	usersCmd.AddCommand(newUsersAddCmd())
	usersCmd.AddCommand(newUsersListCmd())

	return usersCmd
}

func newUsersAddCmd() *cobra.Command {
	var (
		email    string
		orgName  string
		roleName string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user, creating its organisation when needed",
		Example: `  alertfilter users add --email analyst@example.org --org CIRCL
  alertfilter users add --email admin@example.org --org CIRCL --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			stores := app.Storage

			role, err := stores.Roles.GetRoleByName(ctx, roleName)
			if err != nil {
				return fmt.Errorf("role %q: %w", roleName, err)
			}

			org, err := stores.Organisations.GetOrganisationByName(ctx, orgName)
			if errors.Is(err, storage.ErrOrganisationNotFound) {
				org = &storage.Organisation{Name: orgName}
				err = stores.Organisations.CreateOrganisation(ctx, org)
			}
			if err != nil {
				return fmt.Errorf("organisation %q: %w", orgName, err)
			}

			user := &storage.User{
				Email:    email,
				OrgID:    org.ID,
				RoleID:   role.ID,
				Disabled: disabled,
			}
			if err := stores.Users.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, user)
			}
			successColor.Fprintf(out, "✓ Created user %s (ID: %d)\n", user.Email, user.ID)
			if !quiet {
				infoColor.Fprintf(out, "  organisation %s, role %s\n", org.Name, role.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the user")
	cmd.Flags().StringVar(&orgName, "org", "", "Organisation name")
	cmd.Flags().StringVar(&roleName, "role", storage.RoleUser, "Role name (admin, org_admin, user, read_only)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the account disabled")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List user accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			users, err := app.Storage.Users.ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				if users == nil {
					users = []storage.User{}
				}
				return outputAsJSON(out, users)
			}

			if len(users) == 0 {
				warningColor.Fprintln(out, "No users found")
				return nil
			}

			headerColor.Fprintln(out, "USERS")
			headerColor.Fprintln(out, strings.Repeat("=", 80))
			fmt.Fprintf(out, "%-8s %-40s %-8s %-8s %s\n", "ID", "Email", "Org", "Role", "Status")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, u := range users {
				fmt.Fprintf(out, "%-8d %-40s %-8d %-8d %s\n", u.ID, u.Email, u.OrgID, u.RoleID,
					formatVerdict(!u.Disabled, "active", "disabled"))
			}
			fmt.Fprintln(out, strings.Repeat("=", 80))
			return nil
		},
	}
}
