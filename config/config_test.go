package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/seqlink/buffer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	tc := cfg.TransportConfig()
	assert.Equal(t, 1024, tc.MTU)
	assert.Equal(t, 1024, tc.WindowCapacity)
	assert.Equal(t, time.Second, tc.MaintenanceWindow)
	assert.Equal(t, 5*time.Second, tc.CloseTimeout)

	bc, err := cfg.BufferConfig()
	require.NoError(t, err)
	assert.Equal(t, buffer.DefaultConfig(), bc)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "seqlink.yaml", `
log_level: debug
transport:
  mtu: 1200
  maintenance_window_ms: 250
buffer:
  resolution: ms
  maximum_delay: 0.5
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	tc := cfg.TransportConfig()
	assert.Equal(t, 1200, tc.MTU)
	assert.Equal(t, 250*time.Millisecond, tc.MaintenanceWindow)
	assert.Equal(t, 1024, tc.WindowCapacity, "unset fields keep defaults")

	bc, err := cfg.BufferConfig()
	require.NoError(t, err)
	assert.Equal(t, buffer.Millisecond, bc.Resolution)
	assert.Equal(t, 0.5, bc.MaximumDelay)
	assert.Equal(t, buffer.DefaultAdaptationRate, bc.AdaptationRate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "seqlink.toml", `
log_level = "warn"

[transport]
window_capacity = 64
close_timeout_ms = 100

[buffer]
capacity = 32
variance_weight = 2.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	tc := cfg.TransportConfig()
	assert.Equal(t, 64, tc.WindowCapacity)
	assert.Equal(t, 100*time.Millisecond, tc.CloseTimeout)

	bc, err := cfg.BufferConfig()
	require.NoError(t, err)
	assert.Equal(t, 32, bc.Capacity)
	assert.Equal(t, 2.0, bc.VarianceWeight)
}

func TestLoadEmptyYAMLUsesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown yaml key", "a.yaml", "transport:\n  bogus: 1\n"},
		{"unknown toml key", "a.toml", "[transport]\nbogus = 1\n"},
		{"invalid mtu", "a.yaml", "transport:\n  mtu: -1\n"},
		{"bad resolution", "a.toml", "[buffer]\nresolution = \"hour\"\n"},
		{"adaptation rate out of range", "a.yaml", "buffer:\n  adaptation_rate: 1.5\n"},
		{"bad log level", "a.yaml", "log_level: loud\n"},
		{"metrics without listen", "a.yaml", "metrics:\n  enabled: true\n  listen: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	_, err := Load(writeFile(t, "seqlink.json", "{}"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyLogLevel(t *testing.T) {
	prev := logrus.GetLevel()
	defer logrus.SetLevel(prev)

	cfg := DefaultConfig()
	cfg.LogLevel = "trace"
	require.NoError(t, cfg.ApplyLogLevel())
	assert.Equal(t, logrus.TraceLevel, logrus.GetLevel())

	cfg.LogLevel = "nope"
	assert.Error(t, cfg.ApplyLogLevel())
}
