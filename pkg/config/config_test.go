package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmx-collector/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("collect.path", t.TempDir())
	v.Set("log.path", t.TempDir())
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Collect.PollingFrequency)
	assert.Equal(t, 4, cfg.Collect.NbThread)
	assert.Equal(t, "jmx", cfg.Collect.Type)
	assert.Equal(t, "/jolokia", cfg.Collect.Jolokia.Path)
	assert.Equal(t, []string{"log"}, cfg.Sink.Outputs)
}

func TestLoadPollingFrequencyUnits(t *testing.T) {
	cases := map[string]struct {
		value any
		want  time.Duration
	}{
		"bare int is seconds":    {value: 30, want: 30 * time.Second},
		"numeric string seconds": {value: "45", want: 45 * time.Second},
		"duration string":        {value: "2m", want: 2 * time.Minute},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := newViper(t)
			v.Set("collect.polling_frequency", tc.value)
			cfg, err := config.Load(v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Collect.PollingFrequency)
		})
	}
}

func TestLoadRejectsUnusableCollectPath(t *testing.T) {
	v := newViper(t)
	v.Set("collect.path", filepath.Join(t.TempDir(), "missing"))
	_, err := config.Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect.path")

	file := filepath.Join(t.TempDir(), "endpoint.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	v = newViper(t)
	v.Set("collect.path", file)
	_, err = config.Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestLoadRejectsInvalidSchedulingParameters(t *testing.T) {
	v := newViper(t)
	v.Set("collect.nb_thread", 0)
	_, err := config.Load(v)
	assert.Error(t, err)

	v = newViper(t)
	v.Set("collect.polling_frequency", "100ms")
	_, err = config.Load(v)
	assert.Error(t, err)
}

func TestSinkValidate(t *testing.T) {
	s := config.SinkConfig{Outputs: []string{"log", "log"}}
	assert.ErrorContains(t, s.Validate(), "duplicated")

	s = config.SinkConfig{Outputs: []string{"jsonl"}}
	assert.ErrorContains(t, s.Validate(), "sink.jsonl.path")

	s = config.SinkConfig{Outputs: []string{"kafka"}}
	assert.Error(t, s.Validate())

	s = config.SinkConfig{Outputs: []string{"prometheus", "parquet"}, Parquet: config.FileSinkConfig{Path: "x.parquet"}}
	assert.NoError(t, s.Validate())
}
