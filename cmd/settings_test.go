package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"alertfilter/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "k7Qp2vXw9LmN4rTy8ZbC3dFh6JsG1aEu"

// setupWorkspace creates a working directory with a config file that keeps
// all data inside it, and returns the --config argument
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, "config.yaml", fmt.Sprintf(`data_paths:
  data_dir: %q
auth:
  enabled: false
  jwt_secret: %q
  jwt_expiry: 1h
metrics:
  collection_interval: 0s
`, filepath.Join(dir, "data"), testSecret))

	return "--config=config.yaml"
}

// addUser creates a user through the CLI and returns it
func addUser(t *testing.T, configArg, email, org, role string) storage.User {
	t.Helper()
	out, err := runCLI(t, "", configArg, "--json", "users", "add", "--email", email, "--org", org, "--role", role)
	require.NoError(t, err, out)

	var user storage.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	require.NotZero(t, user.ID)
	return user
}

func TestSettingsValidCommand(t *testing.T) {
	out, err := runCLI(t, "", "settings", "valid")
	require.NoError(t, err)
	assert.Contains(t, out, "publish_alert_filter")

	out, err = runCLI(t, "", "--json", "settings", "valid")
	require.NoError(t, err)
	var defs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, "publish_alert_filter", defs[0]["name"])
}

func TestSettingsLifecycle(t *testing.T) {
	configArg := setupWorkspace(t)
	user := addUser(t, configArg, "analyst@circl.lu", "CIRCL", storage.RoleUser)
	userArg := fmt.Sprint(user.ID)

	writeFile(t, "filter.yaml", "OR:\n  - Tag.name: [tlp:red]\n")
	writeFile(t, "red.json", `{"EventTag":[{"Tag":{"name":"TLP:RED"}}]}`)
	writeFile(t, "white.json", `{"EventTag":[{"Tag":{"name":"tlp:white"}}]}`)

	// No filter stored: everything alerts
	out, err := runCLI(t, "", configArg, "--json", "settings", "check", userArg, "--event", "white.json")
	require.NoError(t, err, out)
	assert.JSONEq(t, fmt.Sprintf(`{"user_id":%d,"publish":true}`, user.ID), out)

	out, err = runCLI(t, "", configArg, "settings", "set", userArg, "publish_alert_filter", "--file", "filter.yaml")
	require.NoError(t, err, out)
	assert.Contains(t, out, `{"OR":[{"Tag.name":["tlp:red"]}]}`)

	out, err = runCLI(t, "", configArg, "settings", "check", userArg, "--event", "red.json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ alert")

	out, err = runCLI(t, "", configArg, "settings", "check", userArg, "--event", "white.json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✗ suppressed")

	out, err = runCLI(t, "", configArg, "settings", "get", userArg, "publish_alert_filter")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Tag.name in [tlp:red]")

	out, err = runCLI(t, "", configArg, "--json", "settings", "list", userArg)
	require.NoError(t, err, out)
	var settings []storage.UserSetting
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	require.Len(t, settings, 1)
	assert.Equal(t, "publish_alert_filter", settings[0].Setting)

	// Declined confirmation leaves the setting in place
	out, err = runCLI(t, "n\n", configArg, "settings", "delete", userArg, "publish_alert_filter")
	require.NoError(t, err)
	assert.Contains(t, out, "Deletion cancelled")

	out, err = runCLI(t, "y\n", configArg, "settings", "delete", userArg, "publish_alert_filter")
	require.NoError(t, err, out)
	assert.Contains(t, out, "deleted")

	_, err = runCLI(t, "", configArg, "settings", "get", userArg, "publish_alert_filter")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSettingNotFound)
}

func TestSettingsSet_Validation(t *testing.T) {
	configArg := setupWorkspace(t)
	user := addUser(t, configArg, "analyst@circl.lu", "CIRCL", storage.RoleUser)
	userArg := fmt.Sprint(user.ID)

	_, err := runCLI(t, "", configArg, "settings", "set", userArg, "publish_alert_filter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a value is required")

	_, err = runCLI(t, "", configArg, "settings", "set", userArg, "publish_alert_filter", "--value", `{"XOR":[]}`)
	assert.Error(t, err)

	_, err = runCLI(t, "", configArg, "settings", "set", userArg, "dashboard_layout", "--value", `{}`)
	assert.Error(t, err)

	_, err = runCLI(t, "", configArg, "settings", "set", "abc", "publish_alert_filter", "--value", `[]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")

	out, err := runCLI(t, "", configArg, "--quiet", "settings", "set", userArg, "publish_alert_filter", "--value", "")
	require.NoError(t, err, out)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestSettingsAccessGate(t *testing.T) {
	configArg := setupWorkspace(t)
	alice := addUser(t, configArg, "alice@circl.lu", "CIRCL", storage.RoleUser)
	bob := addUser(t, configArg, "bob@circl.lu", "CIRCL", storage.RoleUser)
	admin := addUser(t, configArg, "admin@circl.lu", "CIRCL", storage.RoleOrgAdmin)
	outsider := addUser(t, configArg, "admin@cert.example", "CERT", storage.RoleOrgAdmin)

	aliceArg := fmt.Sprint(alice.ID)
	set := func(actor storage.User) error {
		_, err := runCLI(t, "", configArg, "settings", "set", aliceArg, "publish_alert_filter",
			"--value", `{"Tag.name":"tlp:red"}`, "--as", fmt.Sprint(actor.ID))
		return err
	}

	assert.Error(t, set(bob))
	assert.Error(t, set(outsider))
	assert.NoError(t, set(admin))
	assert.NoError(t, set(alice))

	_, err := runCLI(t, "", configArg, "settings", "list", aliceArg, "--as", "999")
	assert.Error(t, err)
}

func TestUsersCommands(t *testing.T) {
	configArg := setupWorkspace(t)

	out, err := runCLI(t, "", configArg, "users", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No users found")

	addUser(t, configArg, "analyst@circl.lu", "CIRCL", storage.RoleUser)
	addUser(t, configArg, "second@circl.lu", "CIRCL", storage.RoleReadOnly)

	_, err = runCLI(t, "", configArg, "users", "add", "--email", "analyst@circl.lu", "--org", "CIRCL")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = runCLI(t, "", configArg, "users", "add", "--email", "x@circl.lu", "--org", "CIRCL", "--role", "root")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrRoleNotFound)

	out, err = runCLI(t, "", configArg, "--json", "users", "list")
	require.NoError(t, err, out)
	var users []storage.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 2)
	assert.Equal(t, users[0].OrgID, users[1].OrgID)
}

func TestTokenCommand(t *testing.T) {
	configArg := setupWorkspace(t)
	user := addUser(t, configArg, "analyst@circl.lu", "CIRCL", storage.RoleUser)

	out, err := runCLI(t, "", configArg, "--json", "token", "--user", fmt.Sprint(user.ID), "--expiry", "10m")
	require.NoError(t, err, out)

	var result tokenResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, user.ID, result.UserID)
	assert.Len(t, strings.Split(result.Token, "."), 3)

	_, err = runCLI(t, "", configArg, "token", "--user", "999")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
