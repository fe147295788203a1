package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-powerdag/internal/config"
)

const testConfig = `
section "condor" {
  universe      = "vanilla"
  lalapps_power = "/opt/lalapps/bin/lalapps_power"
}

section "lalapps_power" {
  window-length      = 2048
  window-shift       = 1024
  resample-rate      = 8192
  low-freq-cutoff    = 70.0
  bandwidth          = 1.5e3
  verbose            = true
}

section "lalapps_power_H1" {
  channel-name = "H1:LSC-AS_Q"
}
`

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(testConfig), "test.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"condor", "lalapps_power", "lalapps_power_H1"}, cfg.Sections())

	universe, err := cfg.Get("condor", "universe")
	require.NoError(t, err)
	assert.Equal(t, "vanilla", universe)

	items, err := cfg.Items("lalapps_power")
	require.NoError(t, err)
	assert.Equal(t, []config.Option{
		{Key: "window-length", Value: "2048"},
		{Key: "window-shift", Value: "1024"},
		{Key: "resample-rate", Value: "8192"},
		{Key: "low-freq-cutoff", Value: "70"},
		{Key: "bandwidth", Value: "1500"},
		{Key: "verbose", Value: "true"},
	}, items)

	rate, err := cfg.GetInt("lalapps_power", "resample-rate")
	require.NoError(t, err)
	assert.Equal(t, 8192, rate)

	flow, err := cfg.GetFloat("lalapps_power", "low-freq-cutoff")
	require.NoError(t, err)
	assert.Equal(t, 70.0, flow)

	assert.True(t, cfg.HasSection("lalapps_power_H1"))
	assert.False(t, cfg.HasSection("lalapps_power_L1"))
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(testConfig), "test.hcl")
	require.NoError(t, err)

	_, err = cfg.Get("pipeline", "out_dir")
	assert.True(t, errors.Is(err, config.ErrMissingSection))

	_, err = cfg.Get("condor", "ligolw_add")
	assert.True(t, errors.Is(err, config.ErrMissingOption))

	_, err = cfg.GetInt("condor", "universe")
	assert.True(t, errors.Is(err, config.ErrInvalidValue))

	assert.Equal(t, "logs", cfg.GetDefault("pipeline", "out_dir", "logs"))
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte(`section "condor" { universe = }`), "bad.hcl")
	assert.Error(t, err)

	_, err = config.Parse([]byte(`section "condor" { list = [1, 2] }`), "list.hcl")
	assert.Error(t, err)
}

func TestLoadMergesRepeatedSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	src := testConfig + `
section "condor" {
  universe = "standard"
  ligolw_add = "/opt/glue/bin/ligolw_add"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	items, err := cfg.Items("condor")
	require.NoError(t, err)
	assert.Equal(t, []config.Option{
		{Key: "universe", Value: "standard"},
		{Key: "lalapps_power", Value: "/opt/lalapps/bin/lalapps_power"},
		{Key: "ligolw_add", Value: "/opt/glue/bin/ligolw_add"},
	}, items)
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := config.New(&config.Section{Name: "pipeline", Options: []config.Option{{Key: "out_dir", Value: "logs"}}})
	val, err := cfg.Get("pipeline", "out_dir")
	require.NoError(t, err)
	assert.Equal(t, "logs", val)
}
