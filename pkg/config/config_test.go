package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/pcgk/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 64, cfg.ThreadGroupSize)
	assert.Equal(t, 128, cfg.MaxCustomAttributes)
	assert.Equal(t, 32, cfg.ReservedAttributes)
	assert.True(t, cfg.IsFeatureEnabled(FeatSetterScan))
	assert.False(t, cfg.IsFeatureEnabled(FeatStrictNames))
	assert.False(t, cfg.IsWarningEnabled(WarnUnusedPin))
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Features, int(FeatCount))
	assert.Len(t, cfg.Warnings, int(WarnCount))
}

func TestProcessFlags(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ProcessFlags([]string{"-Wno-string-keys", "-Wall", "-Fstrict-names", "-Fno-line-directives"}))

	assert.False(t, cfg.IsWarningEnabled(WarnStringKeys), "individual flags override -Wall")
	assert.True(t, cfg.IsWarningEnabled(WarnUnusedPin))
	assert.True(t, cfg.IsFeatureEnabled(FeatStrictNames))
	assert.False(t, cfg.IsFeatureEnabled(FeatLineDirectives))

	require.NoError(t, cfg.ProcessFlags([]string{"-Wno-all"}))
	for w := Warning(0); w < WarnCount; w++ {
		assert.False(t, cfg.IsWarningEnabled(w), cfg.WarningName(w))
	}
}

func TestProcessFlagsErrors(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorContains(t, cfg.ProcessFlags([]string{"-Wbogus"}), "unknown warning 'bogus'")
	assert.ErrorContains(t, cfg.ProcessFlags([]string{"-Fbogus"}), "unknown feature 'bogus'")
	assert.ErrorContains(t, cfg.ProcessFlags([]string{"-O2"}), "unrecognized flag")
}

func TestDirectiveFlags(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ProcessDirectiveFlags(` -Wunused-pin  "-Fno-executed-flag" `))
	assert.True(t, cfg.IsWarningEnabled(WarnUnusedPin))
	assert.False(t, cfg.IsFeatureEnabled(FeatExecutedFlag))

	assert.Error(t, cfg.ProcessDirectiveFlags(`"-Wall`))
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := NewConfig()
	c := cfg.Clone()
	c.SetWarning(WarnUnusedPin, true)
	c.SetFeature(FeatSetterScan, false)
	c.ThreadGroupSize = 8

	assert.False(t, cfg.IsWarningEnabled(WarnUnusedPin))
	assert.True(t, cfg.IsFeatureEnabled(FeatSetterScan))
	assert.Equal(t, 64, cfg.ThreadGroupSize)
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.ThreadGroupSize = 0
	assert.ErrorContains(t, cfg.Validate(), "thread group size")

	cfg = NewConfig()
	cfg.MaxCustomAttributes = -1
	assert.ErrorContains(t, cfg.Validate(), "attribute count")

	cfg = NewConfig()
	cfg.ReservedAttributes = -1
	assert.ErrorContains(t, cfg.Validate(), "reserved")
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("pcgk")
	warnings, features := cfg.SetupFlagGroups(fs)

	require.NoError(t, fs.Parse([]string{"-Wunused-pin", "-Fno-data-labels", "input.toml"}))
	cfg.ApplyFlagGroups(warnings, features)

	assert.True(t, cfg.IsWarningEnabled(WarnUnusedPin))
	assert.False(t, cfg.IsFeatureEnabled(FeatDataLabels))
	assert.Equal(t, []string{"input.toml"}, fs.Args())
}
