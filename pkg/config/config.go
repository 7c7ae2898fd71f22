package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/xplshn/pcgk/pkg/cli"
)

type Feature int

const (
	FeatLineDirectives Feature = iota
	FeatDataLabels
	FeatSetterScan
	FeatStrictNames
	FeatExecutedFlag
	FeatCount
)

type Warning int

const (
	WarnMalformedCall Warning = iota
	WarnUnwrittenPin
	WarnUnusedPin
	WarnStringKeys
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	DefaultThreadGroupSize     = 64
	DefaultMaxCustomAttributes = 128
	DefaultReservedAttributes  = 32
	DefaultKernelNameSuffix    = "PCGCustomHLSLKernel"
)

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	ThreadGroupSize     int
	MaxCustomAttributes int
	ReservedAttributes  int
	KernelNameSuffix    string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),

		ThreadGroupSize:     DefaultThreadGroupSize,
		MaxCustomAttributes: DefaultMaxCustomAttributes,
		ReservedAttributes:  DefaultReservedAttributes,
		KernelNameSuffix:    DefaultKernelNameSuffix,
	}

	features := map[Feature]Info{
		FeatLineDirectives: {"line-directives", true, "Emit a `#line` directive before the user source."},
		FeatDataLabels:     {"data-labels", true, "Resolve quoted data labels passed to pin functions into data IDs."},
		FeatSetterScan:     {"setter-scan", true, "Treat any `{Pin}_Set` call as writing the output pin."},
		FeatStrictNames:    {"strict-names", false, "Only accept plain identifiers as attribute names."},
		FeatExecutedFlag:   {"executed-flag", true, "Mark data collection outputs as executed from the first thread."},
	}

	warnings := map[Warning]Info{
		WarnMalformedCall: {"malformed-call", true, "Warn about attribute calls dropped for having the wrong argument count."},
		WarnUnwrittenPin:  {"unwritten-pin", true, "Warn about unwritten output pins when the error is muted."},
		WarnUnusedPin:     {"unused-pin", false, "Warn about input pins no source refers to."},
		WarnStringKeys:    {"string-keys", true, "Warn when string keys cannot be propagated to an output pin."},
		WarnExtra:         {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// Clone returns an independent copy, so directives in one kernel do not leak
// into the next.
func (c *Config) Clone() *Config {
	out := *c
	out.Features = make(map[Feature]Info, len(c.Features))
	for k, v := range c.Features {
		out.Features[k] = v
	}
	out.Warnings = make(map[Warning]Info, len(c.Warnings))
	for k, v := range c.Warnings {
		out.Warnings[k] = v
	}
	return &out
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// Validate rejects numeric settings the code generator cannot honour.
func (c *Config) Validate() error {
	if c.ThreadGroupSize <= 0 {
		return fmt.Errorf("thread group size must be positive, got %d", c.ThreadGroupSize)
	}
	if c.MaxCustomAttributes <= 0 {
		return fmt.Errorf("maximum custom attribute count must be positive, got %d", c.MaxCustomAttributes)
	}
	if c.ReservedAttributes < 0 {
		return fmt.Errorf("reserved attribute count cannot be negative, got %d", c.ReservedAttributes)
	}
	return nil
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessFlags applies -Wall/-Wno-all first so individual flags override them.
func (c *Config) ProcessFlags(flags []string) error {
	for _, name := range flags {
		if name == "-Wall" || name == "-Wno-all" {
			if err := c.applyFlag(name); err != nil {
				return err
			}
		}
	}
	for _, name := range flags {
		if name != "-Wall" && name != "-Wno-all" {
			if err := c.applyFlag(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessDirectiveFlags applies the flags of a `// [pcg]:` source directive.
func (c *Config) ProcessDirectiveFlags(flagStr string) error {
	flags, err := ParseCLIString(flagStr)
	if err != nil {
		return err
	}
	return c.ProcessFlags(flags)
}

func ParseCLIString(s string) ([]string, error) {
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid argument string %q: %w", s, err)
	}
	return args, nil
}

// SetupFlagGroups registers -W and -F flags on fs. Entries are indexed by
// Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool),
		}
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable a warning with -W<name>, disable it with -Wno-<name>. -Wall toggles every warning.", "W", warnings)
	fs.AddFlagGroup("Feature Flags", "Enable a feature with -F<name>, disable it with -Fno-<name>.", "F", features)
	return warnings, features
}

// ApplyFlagGroups copies the parsed group toggles into the config.
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	for i, entry := range warnings {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
