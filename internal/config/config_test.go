package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Verify(cfg))

	assert.Equal(t, DefaultFrames, cfg.Simulation.Frames)
	assert.Equal(t, DefaultTickRate, cfg.Simulation.TickRate)
	assert.Equal(t, DefaultRepeatHorizon, cfg.Simulation.RepeatHorizon)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, DefaultJournalPath, cfg.Journal.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
simulation:
  frames: 120
journal:
  enabled: true
  path: /tmp/custom.db
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Simulation.Frames)
	// Untouched fields keep their defaults
	assert.Equal(t, DefaultTickRate, cfg.Simulation.TickRate)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/custom.db", cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
simulation:
  framez: 60
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestParseVerifyFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "zero frames",
			yaml: "simulation:\n  frames: 0\n",
			want: "simulation.frames",
		},
		{
			name: "zero tick rate",
			yaml: "simulation:\n  tick_rate: 0\n",
			want: "simulation.tick_rate",
		},
		{
			name: "negative repeat horizon",
			yaml: "simulation:\n  repeat_horizon: -1\n",
			want: "simulation.repeat_horizon",
		},
		{
			name: "journal enabled without path",
			yaml: "journal:\n  enabled: true\n  path: \"\"\n",
			want: "journal.path",
		},
		{
			name: "bad log level",
			yaml: "log:\n  level: loud\n",
			want: "log.level",
		},
		{
			name: "bad log format",
			yaml: "log:\n  format: xml\n",
			want: "log.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  frames: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Simulation.Frames)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
