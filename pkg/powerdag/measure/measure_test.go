package measure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-powerdag/pkg/powerdag/measure"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

func TestDAGMeasure(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	opt := measure.DAGMeasure(m)
	require.NoError(t, opt.New())

	datafind := &model.NodeInfo{Kind: model.DatafindKind, Name: "datafind", Start: 488, End: 1141, Outputs: []string{"H.cache"}}
	require.NoError(t, opt.PrepareNode(nil, datafind))
	for _, span := range [][2]float64{{1000, 1044}, {1032, 1076}} {
		power := &model.NodeInfo{
			Kind:    model.PowerKind,
			Start:   span[0],
			End:     span[1],
			Inputs:  []string{"H.cache"},
			Outputs: []string{"out.xml"},
		}
		require.NoError(t, opt.PrepareNode([]*model.NodeInfo{datafind}, power))
	}
	tisi := &model.NodeInfo{Kind: model.TisiKind, Inputs: []string{"tisi.xml"}, Outputs: []string{"tisi.xml"}}
	require.NoError(t, opt.PrepareNode(nil, tisi))
	require.NoError(t, opt.Finish())

	all := m.AllMetrics()
	assert.Len(t, all, 3)

	power := m.GetMetric(model.PowerKind)
	require.NotNil(t, power)
	assert.Equal(t, 2, power.Nodes())
	assert.Equal(t, 88.0, power.Covered())
	assert.Equal(t, 44.0, power.AVGCovered())
	inputs, outputs := power.Files()
	assert.Equal(t, 2, inputs)
	assert.Equal(t, 2, outputs)
	assert.Equal(t, map[model.NodeKind]int{model.DatafindKind: 2}, power.Parents())

	assert.Equal(t, 0.0, m.GetMetric(model.TisiKind).Covered())
	assert.Equal(t, 0.0, m.GetMetric(model.TisiKind).AVGCovered())
	assert.Nil(t, m.GetMetric(model.BurcaKind))
}

func TestAddMetricReusesKind(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	first := m.AddMetric(model.LladdKind)
	first.AddNode(10, 1, 1)
	second := m.AddMetric(model.LladdKind)
	assert.Same(t, first, second)
	assert.Equal(t, 1, second.Nodes())
}
