package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/vdiff/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vdiff.toml"

	// DefaultFrameInterval is the default time between animation frames.
	DefaultFrameInterval = 16 * time.Millisecond

	// MaxFrameInterval bounds the frame interval; slower frames make
	// asynchronous updates visibly lag.
	MaxFrameInterval = time.Second

	// DefaultJournalPath is where the patch journal is written.
	DefaultJournalPath = "vdiff.journal"

	// DefaultDevAddr is the default development server address.
	DefaultDevAddr = "localhost:7070"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "vdiff"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Config represents vdiff.toml.
type Config struct {
	// Runtime configures the render loop.
	Runtime RuntimeConfig `toml:"runtime"`

	// Journal configures the patch journal.
	Journal JournalConfig `toml:"journal"`

	// Dev configures the development server.
	Dev DevConfig `toml:"dev"`

	// Log configures logging.
	Log LogConfig `toml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains render loop settings.
type RuntimeConfig struct {
	// FrameInterval is the time between frames, e.g. "16ms".
	FrameInterval Duration `toml:"frame_interval"`

	// Namespace prefixes metric names.
	Namespace string `toml:"metrics_namespace"`
}

// JournalConfig contains patch journal settings.
type JournalConfig struct {
	// Enabled records every render cycle of `vdiff serve`.
	Enabled bool `toml:"enabled"`

	// Path is the journal file, relative to the config file.
	Path string `toml:"path"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Addr is the listen address (host:port).
	Addr string `toml:"addr"`

	// AllowedOrigins lists origins accepted on the WebSocket endpoint.
	// Empty means same-origin only.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`

	// Format is text or json.
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "16ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			FrameInterval: Duration{DefaultFrameInterval},
			Namespace:     DefaultNamespace,
		},
		Journal: JournalConfig{
			Path: DefaultJournalPath,
		},
		Dev: DevConfig{
			Addr: DefaultDevAddr,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: "text",
		},
	}
}

// Load reads vdiff.toml from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Unknown keys
// are rejected.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E301").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use the defaults")
		}
		var perr toml.ParseError
		if stderrors.As(err, &perr) {
			return nil, errors.New("E301").
				Wrap(err).
				WithLocation(path, perr.Position.Line, 0)
		}
		return nil, errors.New("E301").Wrap(err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New("E302").
			WithDetail("Unknown keys in " + path + ": " + strings.Join(keys, ", "))
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional loads path when it exists and returns the defaults
// otherwise. An empty path looks for vdiff.toml in the working directory.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		path = ConfigFileName
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return errors.New("E301").Wrap(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.New("E301").Wrap(err)
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
	if c.Runtime.FrameInterval.Duration == 0 {
		c.Runtime.FrameInterval.Duration = DefaultFrameInterval
	}
	if c.Runtime.Namespace == "" {
		c.Runtime.Namespace = DefaultNamespace
	}
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
	if c.Dev.Addr == "" {
		c.Dev.Addr = DefaultDevAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E302").WithDetail(fmt.Sprintf(format, args...))
	}

	if d := c.Runtime.FrameInterval.Duration; d <= 0 || d > MaxFrameInterval {
		return invalid("runtime.frame_interval must be between 1ns and %s, got %s", MaxFrameInterval, d)
	}
	if !metricName.MatchString(c.Runtime.Namespace) {
		return invalid("runtime.metrics_namespace %q is not a valid metric name prefix", c.Runtime.Namespace)
	}
	if _, _, err := net.SplitHostPort(c.Dev.Addr); err != nil {
		return invalid("dev.addr %q: %v", c.Dev.Addr, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// JournalPath returns the journal path resolved against the config
// directory.
func (c *Config) JournalPath() string {
	if filepath.IsAbs(c.Journal.Path) || c.Dir() == "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Dir(), c.Journal.Path)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// Logger builds a logger writing to w per the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
