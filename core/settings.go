package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SettingPublishAlertFilter holds the rule that decides whether a user is
// alerted when an event is published.
const SettingPublishAlertFilter = "publish_alert_filter"

// SettingDefinition describes one entry of the valid settings registry.
type SettingDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Placeholder json.RawMessage `json:"placeholder"`
	// Rule is set for settings whose value is a rule document
	Rule bool `json:"rule"`
}

var validSettings = map[string]SettingDefinition{
	SettingPublishAlertFilter: {
		Name:        SettingPublishAlertFilter,
		Description: "Only receive publish alerts for events matching this rule",
		Placeholder: json.RawMessage(`{"AND":{"NOT":{"EventTag.name":["%osint%"]},"OR":{"Tag.name":["tlp:green","tlp:amber","tlp:red","%privint%"]}}}`),
		Rule:        true,
	},
}

// LookupSetting returns the registry entry for name.
func LookupSetting(name string) (SettingDefinition, bool) {
	def, ok := validSettings[name]
	return def, ok
}

// CheckSettingValidity returns ErrUnknownSetting unless name is registered.
func CheckSettingValidity(name string) error {
	if _, ok := validSettings[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return nil
}

// ValidSettings returns the registry sorted by name.
func ValidSettings() []SettingDefinition {
	defs := make([]SettingDefinition, 0, len(validSettings))
	for _, def := range validSettings {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
