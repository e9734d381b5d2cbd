// Package config loads the rebalancer configuration file and resolves it
// into tier and folder-plan definitions.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/bamsammich/tiers/internal/logging"
	"github.com/bamsammich/tiers/internal/rule"
	"github.com/bamsammich/tiers/internal/schedule"
	"github.com/bamsammich/tiers/internal/tier"
)

const (
	DefaultIterationLimit  = 20
	DefaultTemporaryPath   = "tmp"
	DefaultLogLevel        = "info"
	DefaultRunInterval     = "hourly"
	DefaultProcessPriority = 2
)

// Config is the configuration file.
type Config struct {
	TemporaryPath   string       `toml:"temporary_path"   yaml:"temporary_path"`
	LogLevel        string       `toml:"log_level"        yaml:"log_level"`
	RunInterval     string       `toml:"run_interval"     yaml:"run_interval"`
	Tiers           []TierConfig `toml:"tiers"            yaml:"tiers"`
	FolderRules     []FolderRule `toml:"folder_rules"     yaml:"folder_rules"`
	IterationLimit  int          `toml:"iteration_limit"  yaml:"iteration_limit"`
	ProcessPriority int          `toml:"process_priority" yaml:"process_priority"`
	BWLimit         Size         `toml:"bwlimit"          yaml:"bwlimit"`
	Verify          bool         `toml:"verify"           yaml:"verify"`
}

// TierConfig is one storage location, fastest first.
type TierConfig struct {
	MockCapacity *Size  `toml:"mock_capacity" yaml:"mock_capacity"`
	Path         string `toml:"path"          yaml:"path"`
	Target       int    `toml:"target"        yaml:"target"`
}

// FolderRule is the configured form of a folder plan.
type FolderRule struct {
	PathPrefix string `toml:"path_prefix" yaml:"path_prefix"`
	Rule       string `toml:"rule"        yaml:"rule"`
	Pattern    string `toml:"pattern"     yaml:"pattern"`
	TimeType   string `toml:"time_type"   yaml:"time_type"`
	Priority   int    `toml:"priority"    yaml:"priority"`
	Reverse    bool   `toml:"reverse"     yaml:"reverse"`
}

// Default returns a Config with every default applied and no tiers.
func Default() Config {
	return Config{
		IterationLimit:  DefaultIterationLimit,
		TemporaryPath:   DefaultTemporaryPath,
		LogLevel:        DefaultLogLevel,
		RunInterval:     DefaultRunInterval,
		ProcessPriority: DefaultProcessPriority,
	}
}

// Path returns the resolved path to the default config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tiers", "config.toml")
}

// Load reads and validates the config file at path, or at Path() when path
// is empty. The format follows the extension: .toml, or .yaml/.yml/.json.
func Load(path string) (Config, error) {
	if path == "" {
		path = Path()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext over the defaults, then
// validates the result.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown keys: %v", undecoded)
		}
	case ".yaml", ".yml", ".json":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", strings.TrimPrefix(ext, "."), err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var errs []error

	if len(c.Tiers) == 0 {
		errs = append(errs, errors.New("at least one tier is required"))
	}
	seen := make(map[string]int)
	for i, t := range c.Tiers {
		switch {
		case t.Path == "":
			errs = append(errs, fmt.Errorf("tiers[%d]: path is required", i))
		default:
			clean := filepath.Clean(t.Path)
			if j, dup := seen[clean]; dup {
				errs = append(errs, fmt.Errorf("tiers[%d]: path %s duplicates tiers[%d]", i, t.Path, j))
			}
			seen[clean] = i
		}
		if t.Target < 0 || t.Target > 100 {
			errs = append(errs, fmt.Errorf("tiers[%d]: target %d out of range 0..100", i, t.Target))
		}
		if t.MockCapacity != nil && *t.MockCapacity <= 0 {
			errs = append(errs, fmt.Errorf("tiers[%d]: mock_capacity must be positive", i))
		}
	}

	for i := range c.Tiers {
		for j := i + 1; j < len(c.Tiers); j++ {
			a, b := c.Tiers[i].Path, c.Tiers[j].Path
			if a == "" || b == "" {
				continue
			}
			_, inA := tier.RelPath(filepath.Clean(a), filepath.Clean(b))
			_, inB := tier.RelPath(filepath.Clean(b), filepath.Clean(a))
			if inA == nil || inB == nil {
				errs = append(errs, fmt.Errorf("tiers[%d]: path %s overlaps tiers[%d] path %s", j, b, i, a))
			}
		}
	}

	if c.IterationLimit < 1 {
		errs = append(errs, fmt.Errorf("iteration_limit %d must be at least 1", c.IterationLimit))
	}
	if c.TemporaryPath == "" || c.TemporaryPath == "." || c.TemporaryPath == ".." ||
		strings.ContainsRune(c.TemporaryPath, filepath.Separator) {
		errs = append(errs, fmt.Errorf("temporary_path %q must be a single directory name", c.TemporaryPath))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := schedule.Parse(c.RunInterval); err != nil {
		errs = append(errs, err)
	}
	if c.ProcessPriority < -20 || c.ProcessPriority > 19 {
		errs = append(errs, fmt.Errorf("process_priority %d out of range -20..19", c.ProcessPriority))
	}
	if c.BWLimit < 0 {
		errs = append(errs, errors.New("bwlimit must not be negative"))
	}

	for i, fr := range c.FolderRules {
		if fr.PathPrefix == "" {
			errs = append(errs, fmt.Errorf("folder_rules[%d]: path_prefix is required", i))
		}
		if _, err := rule.Parse(fr.Rule, fr.Pattern, fr.TimeType); err != nil {
			errs = append(errs, fmt.Errorf("folder_rules[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// TierConfigs resolves the configured tiers in order.
func (c Config) TierConfigs() []tier.Config {
	out := make([]tier.Config, len(c.Tiers))
	for i, t := range c.Tiers {
		out[i] = tier.Config{Path: t.Path, Target: t.Target}
		if t.MockCapacity != nil {
			capacity := int64(*t.MockCapacity)
			out[i].MockCapacity = &capacity
		}
	}
	return out
}

// FolderPlans resolves the folder rules, ordered by descending priority.
func (c Config) FolderPlans() ([]rule.FolderPlan, error) {
	plans := make([]rule.FolderPlan, 0, len(c.FolderRules))
	for i, fr := range c.FolderRules {
		r, err := rule.Parse(fr.Rule, fr.Pattern, fr.TimeType)
		if err != nil {
			return nil, fmt.Errorf("folder_rules[%d]: %w", i, err)
		}
		plans = append(plans, rule.FolderPlan{
			PathPrefix: fr.PathPrefix,
			Priority:   fr.Priority,
			Rule:       r,
			Reverse:    fr.Reverse,
		})
	}
	return rule.SortByPriority(plans), nil
}
