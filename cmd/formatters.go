package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"alertfilter/core"
	"alertfilter/storage"
)

// renderSettingsTable displays a user's settings in a table
func renderSettingsTable(w io.Writer, userID int64, settings []storage.UserSetting) {
	if len(settings) == 0 {
		warningColor.Fprintf(w, "No settings stored for user %d\n", userID)
		return
	}

	headerColor.Fprintf(w, "SETTINGS OF USER %d\n", userID)
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-8s %-25s %-20s %s\n", "ID", "Setting", "Updated", "Value")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, s := range settings {
		value := string(s.Value)
		if len(value) > 44 {
			value = value[:41] + "..."
		}
		fmt.Fprintf(w, "%-8d %-25s %-20s %s\n", s.ID, s.Setting, formatTime(s.Timestamp), value)
	}

	fmt.Fprintln(w, strings.Repeat("=", 100))
}

// renderSetting displays one setting with its parsed rule outline
func renderSetting(w io.Writer, s *storage.UserSetting, rule core.RuleNode) {
	printSection(w, "Setting")
	printField(w, "ID", fmt.Sprint(s.ID))
	printField(w, "User", fmt.Sprint(s.UserID))
	printField(w, "Name", s.Setting)
	printField(w, "Updated", formatTime(s.Timestamp))
	printField(w, "Value", string(s.Value))

	if rule != nil {
		fmt.Fprintln(w)
		printSection(w, "Rule")
		fmt.Fprint(w, core.FormatRule(rule))
	}
}

// renderValidSettings displays the valid settings registry
func renderValidSettings(w io.Writer, defs []core.SettingDefinition) {
	for i, def := range defs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printSection(w, def.Name)
		printField(w, "Description", def.Description)
		printField(w, "Placeholder", string(def.Placeholder))
	}
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-15s %s\n", key+":", value)
}

// formatVerdict returns a colored verdict
func formatVerdict(ok bool, yes, no string) string {
	if ok {
		return successColor.Sprint("✓ " + yes)
	}
	return errorColor.Sprint("✗ " + no)
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
