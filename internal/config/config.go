package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/remote"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/snapshot"
)

const (
	// YAMLFileName is the preferred configuration file name.
	YAMLFileName = "reconciler.yaml"

	// JSONFileName is the JSON configuration file name.
	JSONFileName = "reconciler.json"

	// DefaultAddr is the default listen address of the server.
	DefaultAddr = ":8080"

	// DefaultSocketPath is the default WebSocket route.
	DefaultSocketPath = "/ws"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "reconciler"
)

// Config represents a reconciler.yaml or reconciler.json file.
type Config struct {
	// Engine contains reconciler tunables.
	Engine EngineConfig `json:"engine,omitempty" yaml:"engine,omitempty"`

	// Scheduler contains scheduling host settings.
	Scheduler SchedulerConfig `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`

	// Server contains remote server settings.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// Snapshot selects the snapshot store.
	Snapshot SnapshotConfig `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// EngineConfig contains reconciler tunables.
type EngineConfig struct {
	// MinRemaining is the slack below which a quantum yields (e.g., "1ms").
	MinRemaining string `json:"minRemaining,omitempty" yaml:"minRemaining,omitempty"`

	// Debug logs every unit of work.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// SchedulerConfig contains scheduling host settings.
type SchedulerConfig struct {
	// Frame is the time slice of each work callback (e.g., "16ms").
	Frame string `json:"frame,omitempty" yaml:"frame,omitempty"`
}

// ServerConfig contains remote server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// Path is the WebSocket route.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Title is the page title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// MaxSessions limits concurrent sessions; 0 means no limit.
	MaxSessions int `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// SnapshotConfig selects the snapshot store.
type SnapshotConfig struct {
	// Store is file, bolt or s3.
	Store string `json:"store,omitempty" yaml:"store,omitempty"`

	// Path is the directory (file) or database file (bolt).
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Bucket, Region, Prefix and Endpoint configure the s3 store.
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory. It looks for
// reconciler.yaml, then reconciler.json.
func Load(dir string) (*Config, error) {
	for _, name := range []string{YAMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("K001").
		WithDetail("No " + YAMLFileName + " or " + JSONFileName + " found in " + dir)
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are parsed as YAML, anything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("K001").
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return nil, errors.New("K002").Wrap(err)
	}

	cfg := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("K002").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, in YAML or JSON
// depending on the extension.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("K002").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Newf(errors.CategoryConfig, "write %s: %v", path, err).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Engine.MinRemaining == "" {
		c.Engine.MinRemaining = engine.DefaultMinRemaining.String()
	}
	if c.Scheduler.Frame == "" {
		c.Scheduler.Frame = sched.DefaultFrame.String()
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultSocketPath
	}
	if c.Server.Title == "" {
		c.Server.Title = "reconciler"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Snapshot.Store == "" {
		c.Snapshot.Store = "file"
	}
	if c.Snapshot.Path == "" {
		switch c.Snapshot.Store {
		case "file":
			c.Snapshot.Path = "snapshots"
		case "bolt":
			c.Snapshot.Path = "snapshots.db"
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.Engine.MinRemaining); err != nil || d < 0 {
		return invalid("engine.minRemaining must be a non-negative duration, got %q", c.Engine.MinRemaining)
	}
	if d, err := time.ParseDuration(c.Scheduler.Frame); err != nil || d <= 0 {
		return invalid("scheduler.frame must be a positive duration, got %q", c.Scheduler.Frame)
	}
	// a quantum never starts a unit otherwise
	if c.MinRemaining() >= c.Frame() {
		return invalid("engine.minRemaining (%s) must be less than scheduler.frame (%s)", c.Engine.MinRemaining, c.Scheduler.Frame)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return invalid("server.path must start with /, got %q", c.Server.Path)
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.maxSessions must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Snapshot.Store {
	case "file", "bolt":
		if c.Snapshot.Path == "" {
			return invalid("snapshot.path is required for the %s store", c.Snapshot.Store)
		}
	case "s3":
		if c.Snapshot.Bucket == "" {
			return invalid("snapshot.bucket is required for the s3 store")
		}
	default:
		return invalid("snapshot.store must be file, bolt or s3, got %q", c.Snapshot.Store)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New("K003").WithDetail(fmt.Sprintf(format, args...))
}

// MinRemaining returns engine.minRemaining as a duration.
func (c *Config) MinRemaining() time.Duration {
	d, err := time.ParseDuration(c.Engine.MinRemaining)
	if err != nil {
		return engine.DefaultMinRemaining
	}
	return d
}

// Frame returns scheduler.frame as a duration.
func (c *Config) Frame() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.Frame)
	if err != nil || d <= 0 {
		return sched.DefaultFrame
	}
	return d
}

// EngineConfig returns the engine settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		MinRemaining: c.MinRemaining(),
		Debug:        c.Engine.Debug,
	}
}

// ServerConfig returns the remote server settings.
func (c *Config) ServerConfig() remote.ServerConfig {
	sc := remote.DefaultServerConfig()
	sc.Addr = c.Server.Addr
	sc.SocketPath = c.Server.Path
	sc.Title = c.Server.Title
	sc.MaxSessions = c.Server.MaxSessions
	sc.Session.Frame = c.Frame()
	sc.Session.Engine = c.EngineConfig()
	return sc
}

// SnapshotConfig returns the snapshot store settings. Relative paths are
// resolved against the config file's directory.
func (c *Config) SnapshotConfig() snapshot.Config {
	path := c.Snapshot.Path
	if path != "" && !filepath.IsAbs(path) && c.Dir() != "" {
		path = filepath.Join(c.Dir(), path)
	}
	return snapshot.Config{
		Store:    c.Snapshot.Store,
		Path:     path,
		Bucket:   c.Snapshot.Bucket,
		Region:   c.Snapshot.Region,
		Prefix:   c.Snapshot.Prefix,
		Endpoint: c.Snapshot.Endpoint,
	}
}

// LogLevel returns log.level as a slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{YAMLFileName, JSONFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("K001").
				WithDetail("No configuration file found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest directory at or
// above the working directory that has one. Without one it returns the
// defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
