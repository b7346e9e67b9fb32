package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns its combined output
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-color"}, args...))

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// findCommand finds a subcommand by name
func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// writeFile writes content to name inside the working directory
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0600))
	return name
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "alertfilter", root.Use)
	assert.True(t, root.SilenceUsage)

	for _, name := range []string{"serve", "eval", "validate", "settings", "users", "token", "secret"} {
		assert.NotNil(t, findCommand(root, name), "Missing command: %s", name)
	}
}

func TestRootCommandFlags(t *testing.T) {
	root := NewRootCmd()

	for _, flag := range []string{"json", "config", "no-color", "quiet", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "Missing flag: %s", flag)
	}
	assert.Equal(t, "v", root.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestSettingsCommandStructure(t *testing.T) {
	settings := findCommand(NewRootCmd(), "settings")
	require.NotNil(t, settings)

	for _, name := range []string{"valid", "list", "get", "set", "delete", "check"} {
		assert.NotNil(t, findCommand(settings, name), "Missing command: %s", name)
	}
	assert.NotNil(t, settings.PersistentFlags().Lookup("as"))

	set := findCommand(settings, "set")
	require.NotNil(t, set)
	assert.NotNil(t, set.Flags().Lookup("file"))
	assert.NotNil(t, set.Flags().Lookup("value"))
}

func TestLogLevel(t *testing.T) {
	t.Cleanup(func() { verbose, quiet = false, false })

	verbose, quiet = false, false
	assert.Equal(t, "info", logLevel(true).String())
	assert.Equal(t, "warn", logLevel(false).String())

	quiet = true
	assert.Equal(t, "error", logLevel(true).String())

	verbose = true
	assert.Equal(t, "debug", logLevel(false).String())
}

func TestValidateFilePath_PathTraversal(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{name: "valid relative path", path: "rule.yaml"},
		{name: "valid nested path", path: "rules/rule.yaml"},
		{name: "absolute path outside working directory", path: "/tmp/rule.yaml", errMsg: "path escapes current directory"},
		{name: "path traversal with ..", path: "../../../etc/passwd", errMsg: "path traversal detected"},
		{name: "path traversal in middle", path: "dir/../../../etc/passwd", errMsg: "path traversal detected"},
		{name: "encoded path traversal", path: "..%2F..%2Fetc%2Fpasswd", errMsg: "path traversal detected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFilePath(tt.path)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReadInput(t *testing.T) {
	chdir(t, t.TempDir())

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(`{"from":"stdin"}`))

	data, err := readInput(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, `{"from":"stdin"}`, string(data))

	writeFile(t, "event.json", `{"from":"file"}`)
	data, err = readInput(cmd, "event.json")
	require.NoError(t, err)
	assert.Equal(t, `{"from":"file"}`, string(data))

	_, err = readInput(cmd, "")
	assert.Error(t, err)

	_, err = readInput(cmd, "missing.json")
	assert.Error(t, err)

	big := filepath.Join(".", "big.json")
	writeFile(t, big, strings.Repeat("x", maxInputFileSize+1))
	_, err = readInput(cmd, big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}

func TestSecretCommand(t *testing.T) {
	out, err := runCLI(t, "", "secret", "--length", "40")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 40)

	out, err = runCLI(t, "", "secret", "--length", "8")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 32)
}
