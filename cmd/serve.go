package cmd

import (
	"fmt"

	"alertfilter/bootstrap"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the 'serve' command that runs the HTTP API.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Start the API server and block until SIGINT or SIGTERM is received.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := bootstrap.NewApp(ctx, bootstrap.Options{
				ConfigPath: configFile,
				LogLevel:   logLevel(true),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown()

			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}

			app.WaitForShutdown(ctx)
			return nil
		},
	}
}
