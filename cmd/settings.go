package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"

	"alertfilter/core"
	"alertfilter/storage"

	"github.com/spf13/cobra"
)

// actorID is the user the settings commands act as; 0 acts as the target user
var actorID int64

// NewSettingsCmd creates the 'settings' command with its subcommands.
func NewSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage user settings and publish filters",
		Long: `Read and change per-user settings directly in the database. Every
operation passes the same access gate as the API: site admins manage every
user, org admins the users of their organisation, users themselves.`,
	}

	settingsCmd.PersistentFlags().Int64Var(&actorID, "as", 0, "Act as this user ID (default: the target user)")

	settingsCmd.AddCommand(newSettingsValidCmd())
	settingsCmd.AddCommand(newSettingsListCmd())
	settingsCmd.AddCommand(newSettingsGetCmd())
	settingsCmd.AddCommand(newSettingsSetCmd())
	settingsCmd.AddCommand(newSettingsDeleteCmd())
	settingsCmd.AddCommand(newSettingsCheckCmd())

	return settingsCmd
}

func parseUserArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

// actingUser returns the actor for an operation on userID
func actingUser(userID int64) int64 {
	if actorID > 0 {
		return actorID
	}
	return userID
}

func newSettingsValidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "valid",
		Short: "List the settings users may store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := core.ValidSettings()
			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), defs)
			}
			renderValidSettings(cmd.OutOrStdout(), defs)
			return nil
		},
	}
}

func newSettingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <user-id>",
		Aliases: []string{"ls"},
		Short:   "List the settings of a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			settings, err := app.Settings.ListSettings(ctx, actingUser(userID), userID)
			if err != nil {
				return fmt.Errorf("failed to list settings: %w", err)
			}

			if outputJSON {
				if settings == nil {
					settings = []storage.UserSetting{}
				}
				return outputAsJSON(cmd.OutOrStdout(), settings)
			}
			renderSettingsTable(cmd.OutOrStdout(), userID, settings)
			return nil
		},
	}
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id> <setting>",
		Short: "Show one setting of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			setting, err := app.Settings.GetSetting(ctx, actingUser(userID), userID, args[1])
			if err != nil {
				return fmt.Errorf("failed to get setting: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, setting)
			}

			var rule core.RuleNode
			if def, ok := core.LookupSetting(setting.Setting); ok && def.Rule {
				rule, err = core.ParseRule(setting.Value, app.Engine.Limits)
				if err != nil {
					warningColor.Fprintf(out, "Stored rule does not parse: %v\n", err)
				}
			}
			renderSetting(out, setting, rule)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var (
		filePath string
		value    string
	)

	cmd := &cobra.Command{
		Use:   "set <user-id> <setting>",
		Short: "Store a setting of a user",
		Long: `Store a setting. Rule settings are validated strictly and stored in
canonical JSON; YAML input is accepted. An empty value clears the rule.`,
		Example: `  alertfilter settings set 3 publish_alert_filter --file filter.yaml
  alertfilter settings set 3 publish_alert_filter --value '{"Tag.name":["tlp:red"]}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserArg(args[0])
			if err != nil {
				return err
			}

			var data []byte
			switch {
			case cmd.Flags().Changed("file"):
				if data, err = readInput(cmd, filePath); err != nil {
					return err
				}
			case cmd.Flags().Changed("value"):
				data = []byte(value)
			default:
				return errors.New("a value is required (use --file or --value)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			setting, err := app.Settings.SetSetting(ctx, actingUser(userID), userID, args[1], data)
			if err != nil {
				return fmt.Errorf("failed to set setting: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, setting)
			}
			if !quiet {
				successColor.Fprintf(out, "✓ Setting %s of user %d saved\n", setting.Setting, userID)
			}
			fmt.Fprintln(out, string(setting.Value))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the value from a file, - for stdin")
	cmd.Flags().StringVar(&value, "value", "", "Value given inline")
	cmd.MarkFlagsMutuallyExclusive("file", "value")

	return cmd
}

func newSettingsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <user-id> <setting>",
		Aliases: []string{"rm"},
		Short:   "Delete a setting of a user",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserArg(args[0])
			if err != nil {
				return err
			}
			name := args[1]
			if err := core.CheckSettingValidity(name); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force {
				prompt := fmt.Sprintf("Delete setting %s of user %d?", name, userID)
				if !promptYesNo(bufio.NewReader(cmd.InOrStdin()), out, prompt, false) {
					fmt.Fprintln(out, "Deletion cancelled")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Settings.DeleteSetting(ctx, actingUser(userID), userID, name); err != nil {
				return fmt.Errorf("failed to delete setting: %w", err)
			}

			if !quiet {
				successColor.Fprintf(out, "✓ Setting %s of user %d deleted\n", name, userID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// checkResult is the --json output of settings check
type checkResult struct {
	UserID  int64 `json:"user_id"`
	Publish bool  `json:"publish"`
}

func newSettingsCheckCmd() *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "check <user-id>",
		Short: "Check whether a user would be alerted about an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserArg(args[0])
			if err != nil {
				return err
			}

			data, err := readInput(cmd, eventPath)
			if err != nil {
				return err
			}
			event, err := core.DecodeEvent(data)
			if err != nil {
				return fmt.Errorf("invalid event: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Settings.Authorize(ctx, actingUser(userID), userID); err != nil {
				return err
			}

			publish, err := app.Settings.CheckPublishFilter(ctx, userID, event)
			if err != nil {
				return fmt.Errorf("failed to check publish filter: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, checkResult{UserID: userID, Publish: publish})
			}
			fmt.Fprintln(out, formatVerdict(publish, "alert", "suppressed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&eventPath, "event", "", "Event document (JSON), - for stdin")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}
