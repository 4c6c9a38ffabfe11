// Package config loads engine settings from an optional lattice.yaml file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	lerrors "github.com/go-drift/lattice/pkg/errors"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "lattice.yaml"

// SchemaVersion is the configuration schema version written by Default.
const SchemaVersion = "v1.0.0"

// Policy selects what a bounded queue does when it is full.
type Policy int

const (
	// PolicyBlock makes producers wait for space (or their context).
	PolicyBlock Policy = iota
	// PolicyDropOldest discards the oldest queued item to make room.
	PolicyDropOldest
)

func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return PolicyBlock, nil
	case "drop-oldest", "drop_oldest":
		return PolicyDropOldest, nil
	default:
		return 0, fmt.Errorf("unknown queue policy %q", s)
	}
}

// UnmarshalYAML decodes a policy from its name.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML encodes a policy as its name.
func (p Policy) MarshalYAML() (any, error) {
	return p.String(), nil
}

// Config represents the optional lattice.yaml configuration.
type Config struct {
	Version      string             `yaml:"version"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Layout       LayoutConfig       `yaml:"layout"`
	Tessellation TessellationConfig `yaml:"tessellation"`
	Atlas        AtlasConfig        `yaml:"atlas"`
	Log          LogConfig          `yaml:"log"`
	Debug        DebugConfig        `yaml:"debug"`
}

// QueueConfig sizes a bounded cross-thread queue.
type QueueConfig struct {
	Size   int    `yaml:"size"`
	Policy Policy `yaml:"policy"`
}

// SchedulerConfig contains rebuild scheduler settings.
type SchedulerConfig struct {
	MaxRebuildIterations int         `yaml:"max_rebuild_iterations"`
	WriteQueue           QueueConfig `yaml:"write_queue"`
	ResultQueue          QueueConfig `yaml:"result_queue"`
	Workers              int         `yaml:"workers"`
}

// LayoutConfig contains layout pass settings.
type LayoutConfig struct {
	MaxRemeasure int `yaml:"max_remeasure"`
}

// TessellationConfig contains path tessellation settings.
type TessellationConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	Workers   int     `yaml:"workers"`
	CacheSize int     `yaml:"cache_size"`
}

// AtlasConfig contains texture atlas settings.
type AtlasConfig struct {
	InitialSize int `yaml:"initial_size"`
	MaxSize     int `yaml:"max_size"`
	MaxPages    int `yaml:"max_pages"`
	Padding     int `yaml:"padding"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	Verbose bool   `yaml:"verbose"`
}

// DebugConfig contains frame tracing and the debug HTTP server settings.
type DebugConfig struct {
	// Addr is the listen address of the debug server. Empty disables it.
	Addr string `yaml:"addr"`
	// FrameSamples is the number of recent frames kept for inspection.
	FrameSamples int `yaml:"frame_samples"`
	// JankThresholdMs marks frames slower than this as dropped.
	JankThresholdMs float64 `yaml:"jank_threshold_ms"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: SchemaVersion,
		Scheduler: SchedulerConfig{
			MaxRebuildIterations: 16,
			WriteQueue:           QueueConfig{Size: 256, Policy: PolicyBlock},
			ResultQueue:          QueueConfig{Size: 256, Policy: PolicyBlock},
			Workers:              4,
		},
		Layout: LayoutConfig{MaxRemeasure: 1},
		Tessellation: TessellationConfig{
			Tolerance: 0.25,
			Workers:   4,
			CacheSize: 512,
		},
		Atlas: AtlasConfig{
			InitialSize: 512,
			MaxSize:     4096,
			MaxPages:    4,
			Padding:     1,
		},
		Log: LogConfig{Level: "info"},
		Debug: DebugConfig{
			FrameSamples:    240,
			JankThresholdMs: 16.667,
		},
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, configError("config.Parse", fmt.Errorf("failed to parse %s: %w", FileName, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("config.Load", fmt.Errorf("failed to read %s: %w", path, err))
	}
	return Parse(data)
}

// LoadOptional reads lattice.yaml from dir if present and returns defaults
// otherwise.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, configError("config.LoadOptional", fmt.Errorf("failed to read %s: %w", FileName, err))
	}
	return Parse(data)
}

// Validate checks ranges and the schema version.
func (c *Config) Validate() error {
	var errs []error
	v := strings.TrimSpace(c.Version)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	switch {
	case v == "":
		errs = append(errs, errors.New("version is required"))
	case !semver.IsValid(v):
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", c.Version))
	case semver.Major(v) != "v1":
		errs = append(errs, fmt.Errorf("unsupported schema version %s", v))
	}
	if c.Scheduler.MaxRebuildIterations < 1 {
		errs = append(errs, errors.New("scheduler.max_rebuild_iterations must be at least 1"))
	}
	if c.Scheduler.WriteQueue.Size < 1 {
		errs = append(errs, errors.New("scheduler.write_queue.size must be at least 1"))
	}
	if c.Scheduler.ResultQueue.Size < 1 {
		errs = append(errs, errors.New("scheduler.result_queue.size must be at least 1"))
	}
	if c.Scheduler.Workers < 1 {
		errs = append(errs, errors.New("scheduler.workers must be at least 1"))
	}
	if c.Layout.MaxRemeasure < 0 {
		errs = append(errs, errors.New("layout.max_remeasure must not be negative"))
	}
	if c.Tessellation.Tolerance <= 0 {
		errs = append(errs, errors.New("tessellation.tolerance must be positive"))
	}
	if c.Tessellation.Workers < 1 {
		errs = append(errs, errors.New("tessellation.workers must be at least 1"))
	}
	if c.Tessellation.CacheSize < 1 {
		errs = append(errs, errors.New("tessellation.cache_size must be at least 1"))
	}
	if c.Atlas.InitialSize < 1 || c.Atlas.MaxSize < c.Atlas.InitialSize {
		errs = append(errs, fmt.Errorf("atlas sizes invalid: initial %d, max %d", c.Atlas.InitialSize, c.Atlas.MaxSize))
	}
	if c.Atlas.MaxPages < 1 {
		errs = append(errs, errors.New("atlas.max_pages must be at least 1"))
	}
	if c.Atlas.Padding < 0 {
		errs = append(errs, errors.New("atlas.padding must not be negative"))
	}
	if c.Debug.FrameSamples < 0 {
		errs = append(errs, errors.New("debug.frame_samples must not be negative"))
	}
	if c.Debug.JankThresholdMs < 0 {
		errs = append(errs, errors.New("debug.jank_threshold_ms must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return configError("config.Validate", errors.Join(errs...))
	}
	return nil
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

func configError(op string, err error) error {
	return &lerrors.EngineError{Op: op, Kind: lerrors.KindConfig, Err: err}
}
