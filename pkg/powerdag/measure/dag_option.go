package measure

import (
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

type dagMeasure struct {
	Measure
}

func (dm *dagMeasure) New() error {
	return nil
}

func (dm *dagMeasure) PrepareNode(parents []*model.NodeInfo, node *model.NodeInfo) error {
	mt := dm.AddMetric(node.Kind)
	mt.AddNode(node.Duration(), len(node.Inputs), len(node.Outputs))
	for _, parent := range parents {
		mt.AddParent(parent.Kind)
	}

	return nil
}

func (dm *dagMeasure) Finish() error {
	return nil
}

// DAGMeasure records the statistics of every node appended to a DAG in
// measure.
func DAGMeasure(measure Measure) model.DAGOption {
	return &dagMeasure{measure}
}
