// Package cmd provides the command-line interface of the alert filter service.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"alertfilter/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
	verbose    bool
)

const (
	maxInputFileSize = 1 << 20          // 1MB, matches the API body limit
	defaultTimeout   = 30 * time.Second // Default context timeout for CLI operations
)

// NewRootCmd creates the alertfilter root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "alertfilter",
		Short: "Per-user publish alert filtering for threat-intelligence events",
		Long: `alertfilter decides whether a user is alerted when an event is published.

Each user may store a publish_alert_filter rule: a tree of AND/OR/NOT
connectives over event fields such as Tag.name or Orgc.name. The server
exposes the rules over HTTP; the commands below evaluate and manage them
locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewEvalCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewSettingsCmd())
	rootCmd.AddCommand(NewUsersCmd())
	rootCmd.AddCommand(NewTokenCmd())
	rootCmd.AddCommand(NewSecretCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// logLevel picks the log level for a command. Server commands log at Info;
// local commands only surface warnings unless --verbose is given.
func logLevel(server bool) zapcore.Level {
	switch {
	case verbose:
		return zapcore.DebugLevel
	case quiet:
		return zapcore.ErrorLevel
	case server:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// initApp builds the application without starting the API server.
func initApp(ctx context.Context) (*bootstrap.App, func(), error) {
	app, err := bootstrap.NewApp(ctx, bootstrap.Options{
		ConfigPath: configFile,
		LogLevel:   logLevel(false),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return app, app.Shutdown, nil
}

// validateFilePath rejects paths that escape the working directory.
func validateFilePath(filename string) error {
	decoded, err := url.QueryUnescape(filename)
	if err != nil {
		decoded = filename
	}

	if strings.Contains(decoded, "..") || strings.Contains(filename, "..") {
		return fmt.Errorf("path traversal detected: '..' not allowed in file path")
	}

	absPath, err := filepath.Abs(filepath.Clean(decoded))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if absPath != workDir && !strings.HasPrefix(absPath, workDir+string(filepath.Separator)) {
		return fmt.Errorf("path escapes current directory")
	}

	return nil
}

// readInput reads a rule or event document from a file, or from stdin when
// path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("input path is required")
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		if err := validateFilePath(path); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxInputFileSize {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", path, maxInputFileSize)
	}
	return data, nil
}

// outputAsJSON writes data as indented JSON to the command's output.
func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
