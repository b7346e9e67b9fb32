package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alertfilter/api"
	"alertfilter/bootstrap"

	"github.com/spf13/cobra"
)

// tokenResult is the --json output of the token command
type tokenResult struct {
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCmd creates the 'token' command, which issues an API bearer token
func NewTokenCmd() *cobra.Command {
	var (
		userID int64
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		Long: `Issue a signed bearer token for an existing user. The token is signed
with auth.jwt_secret; it is only checked by servers running with auth.enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user must be a positive user id")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if app.Config.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if _, err := app.Storage.Users.GetUserByID(ctx, userID); err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}

			if expiry <= 0 {
				expiry = app.Config.Auth.JWTExpiry
			}
			token, err := api.GenerateToken(userID, app.Config.Auth.JWTSecret, expiry)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, tokenResult{
					UserID:    userID,
					Token:     token,
					ExpiresAt: time.Now().Add(expiry).UTC(),
				})
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID the token is issued for")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "Token lifetime (default: auth.jwt_expiry)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// NewSecretCmd creates the 'secret' command, which prints a random value
// suitable for auth.jwt_secret
func NewSecretCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random JWT signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := bootstrap.GenerateSecret(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "length", 48, "Secret length in characters (minimum 32)")

	return cmd
}
