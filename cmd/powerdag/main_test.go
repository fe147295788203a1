package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
section "condor" {
  universe         = "standard"
  datafind         = "/usr/bin/LSCdataFind"
  lalapps_binj     = "/opt/lalapps/bin/lalapps_binj"
  lalapps_power    = "/opt/lalapps/bin/lalapps_power"
  ligolw_add       = "/opt/glue/bin/ligolw_add"
  ligolw_tisi      = "/opt/glue/bin/ligolw_tisi"
  ligolw_bucut     = "/opt/pylal/bin/ligolw_bucut"
  ligolw_bucluster = "/opt/pylal/bin/ligolw_bucluster"
  ligolw_binjfind  = "/opt/pylal/bin/ligolw_binjfind"
  ligolw_burca     = "/opt/pylal/bin/ligolw_burca"
}

section "pipeline" {
  out_dir         = %q
  cache_dir       = %q
  injection_bands = 4
}

section "lalapps_binj" {
  time-step = 10
}

section "lalapps_power" {
  resample-rate      = 1
  psd-average-points = 16
  window-length      = 16
  window-shift       = 8
  filter-corruption  = 2
  low-freq-cutoff    = 70
  bandwidth          = 1024
}

section "lalapps_power_H1" {
  channel-name = "H1:LSC-STRAIN"
}

section "lalapps_power_L1" {
  channel-name = "L1:LSC-STRAIN"
}
`

type cmdEnv struct {
	dir      string
	config   string
	segments string
}

func newCmdEnv(t *testing.T) *cmdEnv {
	t.Helper()

	dir := t.TempDir()
	env := &cmdEnv{
		dir:      dir,
		config:   filepath.Join(dir, "power.hcl"),
		segments: filepath.Join(dir, "segments.txt"),
	}
	cfg := fmt.Sprintf(testConfig, filepath.Join(dir, "logs"), filepath.Join(dir, "cache"))
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	// the second segment is too short for a single job
	require.NoError(t, os.WriteFile(env.segments, []byte("# seg start stop duration\n0 1000 1150 150\n1 1200 1210 10\n"), 0o600))

	return env
}

func (e *cmdEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return e.executeRaw(t, append([]string{"--tag", "run"}, args...)...)
}

func (e *cmdEnv) executeRaw(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var logs bytes.Buffer
	cmd := newCmdPowerDAG()
	cmd.SetOut(&logs)
	cmd.SetErr(&logs)
	cmd.SetArgs(append([]string{
		"--config", e.config,
		"--segments", e.segments,
		"--dag-dir", filepath.Join(e.dir, "dag"),
		"--log-format", "json",
	}, args...))
	err := cmd.ExecuteContext(context.Background())

	return logs.String(), err
}

func (e *cmdEnv) read(t *testing.T, name string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(e.dir, "dag", name))
	require.NoError(t, err)

	return string(content)
}

func TestPlainCoincidenceRun(t *testing.T) {
	t.Parallel()

	env := newCmdEnv(t)
	dot := filepath.Join(env.dir, "power.dot")
	logs, err := env.execute(t, "--instrument", "H1", "--instrument", "L1", "--dot", dot)
	require.NoError(t, err, logs)

	dag := env.read(t, "power.dag")
	assert.Contains(t, dag, "JOB LSCdataFind-H1-1000-150 datafind.sub\n")
	assert.Contains(t, dag, "JOB LSCdataFind-L1-1000-150 datafind.sub\n")
	assert.Contains(t, dag, "JOB lladd-H1-POWER_run-1000-150 ligolw_add.sub\n")
	assert.Contains(t, dag, "JOB ligolw_bucluster-L1-run-1000-150 ligolw_bucluster.sub\n")
	assert.Contains(t, dag, "JOB lladd-H1L1-POWER_run-1000-150 ligolw_add.sub\n")
	assert.Contains(t, dag, "PARENT lladd-H1L1-POWER_run-1000-150 CHILD ligolw_burca-H1L1-run-1000-150\n")
	assert.NotContains(t, dag, "1200-10")

	assert.Contains(t, logs, "segment skipped, too short")
	assert.Contains(t, logs, `"kind":"power","nodes":10`)

	for _, sub := range []string{"datafind.sub", "lalapps_power.sub", "ligolw_add.sub", "ligolw_bucluster.sub", "ligolw_burca.sub"} {
		assert.FileExists(t, filepath.Join(env.dir, "dag", sub))
	}
	assert.NoFileExists(t, filepath.Join(env.dir, "dag", "lalapps_binj.sub"))
	assert.FileExists(t, dot)
}

func TestInjectionRun(t *testing.T) {
	t.Parallel()

	env := newCmdEnv(t)
	logs, err := env.execute(t, "--instrument", "H1", "--injections", "--dag-name", "injections")
	require.NoError(t, err, logs)

	dag := env.read(t, "injections.dag")
	assert.Contains(t, dag, "JOB ligolw_tisi-INJECTIONS_run ligolw_tisi.sub\n")
	assert.Contains(t, dag, "JOB lladd-ANY-INJECTIONS_run-1000-148 ligolw_add.sub\n")
	assert.Contains(t, dag, "JOB ligolw_bucut-H1-INJECTIONS_run-1000-150 ligolw_bucut.sub\n")
	assert.Contains(t, dag, "PARENT ligolw_bucluster-H1-INJECTIONS_run-1000-150 CHILD ligolw_binjfind-H1-INJECTIONS_run-1000-150\n")
	assert.NotContains(t, dag, "ligolw_burca")

	power := env.read(t, "lalapps_power.sub")
	assert.Contains(t, power, "--burstinjection-file $(macroburstinjectionfile)")
}

func TestMissingFlags(t *testing.T) {
	t.Parallel()

	env := newCmdEnv(t)
	_, err := env.execute(t)
	assert.ErrorIs(t, err, errMissingInstruments)

	_, err = env.execute(t, "--instrument", "H1", "--psds-per-job", "0")
	assert.ErrorIs(t, err, errInvalidSlots)

	_, err = env.executeRaw(t, "--instrument", "H1")
	assert.ErrorIs(t, err, errMissingTag)
	assert.NoDirExists(t, filepath.Join(env.dir, "dag"))
	assert.NoDirExists(t, filepath.Join(env.dir, "cache"))
}
