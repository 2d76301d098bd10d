package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xplshn/scc/pkg/cli"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatCallConv
	FeatAlign
	FeatCount
)

type Warning int

const (
	WarnUnrecognizedEscape Warning = iota
	WarnFraction
	WarnOverflow
	WarnPedantic
	WarnExtra
	WarnCount
)

// Stage selects how far a compilation run goes.
type Stage int

const (
	StageLex Stage = iota
	StageSyntax
)

func (s Stage) String() string {
	switch s {
	case StageLex:
		return "lex"
	case StageSyntax:
		return "syntax"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ParseStage accepts the names printed by Stage.String.
func ParseStage(name string) (Stage, error) {
	switch strings.ToLower(name) {
	case "lex", "lexical":
		return StageLex, nil
	case "syntax", "parse":
		return StageSyntax, nil
	}
	return 0, fmt.Errorf("unknown stage '%s'. Supported: 'lex', 'syntax'", name)
}

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string
	Stage      Stage
	// Caret echoes the source line under error diagnostics.
	Caret bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    "SC",
		Stage:      StageSyntax,
	}

	features := map[Feature]Info{
		FeatCComments: {"c-comments", true, "Recognize C++-style '//' line comments."},
		FeatCallConv:  {"callconv", true, "Allow the '__cdecl' and '__stdcall' calling-convention keywords."},
		FeatAlign:     {"align", true, "Allow the '__align(n)' member alignment pragma."},
	}

	warnings := map[Warning]Info{
		WarnUnrecognizedEscape: {"u-esc", true, "Warn on unrecognized character escape sequences."},
		WarnFraction:           {"fraction", false, "Warn when the fractional part of a number is dropped."},
		WarnOverflow:           {"overflow", true, "Warn when an integer constant does not fit in 64 bits."},
		WarnPedantic:           {"pedantic", false, "Issue all warnings demanded by the strict standard."},
		WarnExtra:              {"extra", true, "Enable extra miscellaneous warnings."},
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

// WarningName returns the flag name of wt, as used in -W<name>.
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// ApplyStd switches between the extended dialect ("SC") and plain C ("C"),
// which has neither calling conventions nor the alignment pragma.
func (c *Config) ApplyStd(stdName string) error {
	isPedantic := c.IsWarningEnabled(WarnPedantic)

	type stdSettings struct {
		feature Feature
		cValue  bool
		scValue bool
	}
	settings := []stdSettings{
		{FeatCComments, !isPedantic, true},
		{FeatCallConv, false, true},
		{FeatAlign, false, true},
	}

	switch stdName {
	case "C":
		for _, s := range settings {
			c.SetFeature(s.feature, s.cValue)
		}
		c.SetWarning(WarnFraction, true)
	case "SC":
		for _, s := range settings {
			c.SetFeature(s.feature, s.scValue)
		}
		c.SetWarning(WarnFraction, isPedantic)
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'SC', 'C'", stdName)
	}
	c.StdName = stdName
	return nil
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	isWarning := true
	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		isWarning = false
	default:
		name = trimmed
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
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

// ProcessDirectiveFlags applies a space separated list such as
// "-Wno-u-esc -Fno-align".
func (c *Config) ProcessDirectiveFlags(flagStr string) error {
	for _, flag := range strings.Fields(flagStr) {
		if err := c.applyFlag(flag); err != nil {
			return err
		}
	}
	return nil
}

// FlagEntries pairs each warning or feature with its -X<name>/-Xno-<name>
// switches, indexed by the Warning or Feature value.
type FlagEntries []cli.FlagGroupEntry

// SetupFlagGroups registers -W and -F flag groups on fs.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features FlagEntries) {
	warnings = make(FlagEntries, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	features = make(FlagEntries, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warnings)
	fs.AddFlagGroup("Feature Flags", "Enable or disable language features", "feature", "Available Features:", features)
	return warnings, features
}

// ApplyFlagGroups applies the command line switches collected by
// SetupFlagGroups. Explicit switches override std presets and config files.
func (c *Config) ApplyFlagGroups(warnings, features FlagEntries) {
	for i, entry := range warnings {
		if *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

type fileConfig struct {
	Stage    string          `toml:"stage"`
	Std      string          `toml:"std"`
	Caret    *bool           `toml:"caret"`
	Flags    string          `toml:"flags"`
	Features map[string]bool `toml:"features"`
	Warnings map[string]bool `toml:"warnings"`
}

// LoadFile applies a TOML configuration file:
//
//	stage = "syntax"
//	std   = "SC"
//	caret = true
//	flags = "-Wno-u-esc"
//
//	[features]
//	align = false
//
//	[warnings]
//	fraction = true
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return c.apply(path, fc)
}

func (c *Config) apply(path string, fc fileConfig) error {
	if fc.Std != "" {
		if err := c.ApplyStd(fc.Std); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	if fc.Stage != "" {
		st, err := ParseStage(fc.Stage)
		if err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		c.Stage = st
	}
	if fc.Caret != nil {
		c.Caret = *fc.Caret
	}
	for _, name := range sortedKeys(fc.Features) {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("config %s: unknown feature '%s'", path, name)
		}
		c.SetFeature(ft, fc.Features[name])
	}
	for _, name := range sortedKeys(fc.Warnings) {
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("config %s: unknown warning '%s'", path, name)
		}
		c.SetWarning(wt, fc.Warnings[name])
	}
	if err := c.ProcessDirectiveFlags(fc.Flags); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
