package measure

import (
	"sync"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

type DefaultMetric struct {
	mu      sync.Mutex
	parents map[model.NodeKind]int
	nodes   int
	covered float64
	inputs  int
	outputs int
}

func (mt *DefaultMetric) AddNode(covered float64, inputs, outputs int) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.nodes++
	mt.covered += covered
	mt.inputs += inputs
	mt.outputs += outputs
}

func (mt *DefaultMetric) AddParent(kind model.NodeKind) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.parents[kind]++
}

func (mt *DefaultMetric) Nodes() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.nodes
}

// Covered is the total amount of data, in seconds, the nodes are responsible
// for. Overlapping nodes count their shared data once each.
func (mt *DefaultMetric) Covered() float64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.covered
}

func (mt *DefaultMetric) AVGCovered() float64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.nodes == 0 {
		return 0
	}

	return mt.covered / float64(mt.nodes)
}

func (mt *DefaultMetric) Files() (int, int) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.inputs, mt.outputs
}

// Parents counts the edges into nodes of this kind by kind of parent.
func (mt *DefaultMetric) Parents() map[model.NodeKind]int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[model.NodeKind]int, len(mt.parents))
	for kind, n := range mt.parents {
		res[kind] = n
	}

	return res
}

var _ Metric = (*DefaultMetric)(nil)
