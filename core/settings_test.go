package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSettingValidity(t *testing.T) {
	assert.NoError(t, CheckSettingValidity(SettingPublishAlertFilter))
	assert.ErrorIs(t, CheckSettingValidity("dashboard_layout"), ErrUnknownSetting)
}

func TestValidSettings_PlaceholdersAreValidRules(t *testing.T) {
	defs := ValidSettings()
	require.NotEmpty(t, defs)
	for _, def := range defs {
		if !def.Rule {
			continue
		}
		_, err := ValidateRuleDocument(def.Placeholder, DefaultRuleLimits())
		assert.NoError(t, err, "placeholder for %s", def.Name)
	}
}
