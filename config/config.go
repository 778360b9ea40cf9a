package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/opd-ai/seqlink/buffer"
	"github.com/opd-ai/seqlink/transport"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by Load for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config file format")

// Config is the file representation of a seqlink endpoint.
type Config struct {
	LogLevel  string          `yaml:"log_level" toml:"log_level"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Buffer    BufferConfig    `yaml:"buffer" toml:"buffer"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// TransportConfig mirrors transport.Config with durations in milliseconds.
type TransportConfig struct {
	WindowCapacity      int     `yaml:"window_capacity" toml:"window_capacity"`
	MTU                 int     `yaml:"mtu" toml:"mtu"`
	MaintenanceWindowMs int     `yaml:"maintenance_window_ms" toml:"maintenance_window_ms"`
	CloseTimeoutMs      int     `yaml:"close_timeout_ms" toml:"close_timeout_ms"`
	ReceiveBufferSize   int     `yaml:"receive_buffer_size" toml:"receive_buffer_size"`
	DropLogRate         float64 `yaml:"drop_log_rate" toml:"drop_log_rate"`
}

// BufferConfig mirrors buffer.Config. Delays are in seconds.
type BufferConfig struct {
	Capacity       int     `yaml:"capacity" toml:"capacity"`
	Resolution     string  `yaml:"resolution" toml:"resolution"`
	AdaptationRate float64 `yaml:"adaptation_rate" toml:"adaptation_rate"`
	VarianceWeight float64 `yaml:"variance_weight" toml:"variance_weight"`
	MaximumDelay   float64 `yaml:"maximum_delay" toml:"maximum_delay"`
	TimeOffset     float64 `yaml:"time_offset" toml:"time_offset"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Listen    string `yaml:"listen" toml:"listen"`
	Path      string `yaml:"path" toml:"path"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// DefaultConfig returns a Config populated with library defaults.
func DefaultConfig() *Config {
	tc := transport.DefaultConfig()
	bc := buffer.DefaultConfig()

	return &Config{
		LogLevel: "info",
		Transport: TransportConfig{
			WindowCapacity:      tc.WindowCapacity,
			MTU:                 tc.MTU,
			MaintenanceWindowMs: int(tc.MaintenanceWindow / time.Millisecond),
			CloseTimeoutMs:      int(tc.CloseTimeout / time.Millisecond),
			ReceiveBufferSize:   tc.ReceiveBufferSize,
			DropLogRate:         tc.DropLogRate,
		},
		Buffer: BufferConfig{
			Capacity:       bc.Capacity,
			Resolution:     bc.Resolution.String(),
			AdaptationRate: bc.AdaptationRate,
			VarianceWeight: bc.VarianceWeight,
			MaximumDelay:   bc.MaximumDelay,
			TimeOffset:     bc.TimeOffset,
		},
		Metrics: MetricsConfig{
			Listen:    "127.0.0.1:9100",
			Path:      "/metrics",
			Namespace: "seqlink",
		},
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file on top of the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse toml config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml config %s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
	}).Debug("Loaded configuration")

	return cfg, nil
}

// Validate checks the log level and both library configurations.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.TransportConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	bc, err := c.BufferConfig()
	if err != nil {
		errs = append(errs, fmt.Errorf("buffer: %w", err))
	} else if err := bc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("buffer: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics: listen address required when enabled"))
	}

	return errors.Join(errs...)
}

// ApplyLogLevel sets the global logrus level.
func (c *Config) ApplyLogLevel() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

// TransportConfig converts to a transport.Config.
func (c *Config) TransportConfig() transport.Config {
	t := c.Transport
	return transport.Config{
		WindowCapacity:    t.WindowCapacity,
		MTU:               t.MTU,
		MaintenanceWindow: time.Duration(t.MaintenanceWindowMs) * time.Millisecond,
		CloseTimeout:      time.Duration(t.CloseTimeoutMs) * time.Millisecond,
		ReceiveBufferSize: t.ReceiveBufferSize,
		DropLogRate:       t.DropLogRate,
	}
}

// BufferConfig converts to a buffer.Config.
func (c *Config) BufferConfig() (buffer.Config, error) {
	res, err := buffer.ParseResolution(c.Buffer.Resolution)
	if err != nil {
		return buffer.Config{}, err
	}
	return buffer.Config{
		Capacity:       c.Buffer.Capacity,
		Resolution:     res,
		AdaptationRate: c.Buffer.AdaptationRate,
		VarianceWeight: c.Buffer.VarianceWeight,
		MaximumDelay:   c.Buffer.MaximumDelay,
		TimeOffset:     c.Buffer.TimeOffset,
	}, nil
}
