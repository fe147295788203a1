package powerdag_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-powerdag/internal/config"
	"github.com/askiada/go-powerdag/pkg/powerdag"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

// With these analysis options one slot lasts 16 s, slots overlap by 8 s and
// each job loses 2 s at both ends.
const testConfigTemplate = `
section "condor" {
  universe         = "standard"
  datafind         = "/usr/bin/LSCdataFind"
  datafind_check   = "/usr/bin/LSCdataFindcheck"
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

section "datafind" {
  type     = "RDS_R_L1"
  url-type = "file"
}

section "lalapps_binj" {
  time-step = 10
  population = "targeted"
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

section "ligolw_bucut" {
  program = "lalapps_power"
}
`

type testEnv struct {
	outDir   string
	cacheDir string
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		outDir:   filepath.Join(dir, "logs"),
		cacheDir: filepath.Join(dir, "cache"),
	}
	cfg, err := config.Parse([]byte(fmt.Sprintf(testConfigTemplate, env.outDir, env.cacheDir)), "test.hcl")
	require.NoError(t, err)
	env.cfg = cfg

	return env
}

func (env *testEnv) builder(t *testing.T, opts ...powerdag.ContextOption) *powerdag.Builder {
	t.Helper()

	pc, err := powerdag.NewPipelineContext(env.cfg, nil, opts...)
	require.NoError(t, err)
	dag, err := powerdag.New(nil)
	require.NoError(t, err)
	b, err := powerdag.NewBuilder(pc, dag)
	require.NoError(t, err)

	return b
}

func testCapacity() powerdag.Capacity {
	return powerdag.Capacity{
		UnitLength:   16,
		WindowLength: 16,
		WindowShift:  8,
		EdgeLoss:     2,
		SlotsPerJob:  4,
	}
}

func nodeNames(nodes []powerdag.Node) []string {
	res := make([]string, len(nodes))
	for i, n := range nodes {
		res[i] = n.Name()
	}

	return res
}

func nodesOfKind(dag *powerdag.DAG, kind model.NodeKind) []powerdag.Node {
	var res []powerdag.Node
	for _, n := range dag.Nodes() {
		if n.Job().Kind == kind {
			res = append(res, n)
		}
	}

	return res
}

func optionValue(t *testing.T, opts []powerdag.Option, key string) string {
	t.Helper()

	for _, opt := range opts {
		if opt.Key == key {
			return opt.Value
		}
	}
	require.Failf(t, "missing option", "option %q not found in %v", key, opts)

	return ""
}
