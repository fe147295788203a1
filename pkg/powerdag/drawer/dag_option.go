package drawer

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-powerdag/pkg/powerdag/measure"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

type dagDrawer struct {
	Drawer
	m measure.Measure
}

func (dd *dagDrawer) New() error {
	return nil
}

func (dd *dagDrawer) PrepareNode(parents []*model.NodeInfo, node *model.NodeInfo) error {
	err := dd.AddNode(node)
	if err != nil {
		return err
	}

	for _, parent := range parents {
		err := dd.AddLink(parent.Name, node.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (dd *dagDrawer) Finish() error {
	if dd.m != nil {
		err := dd.AddMeasure(dd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := dd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw dag")
	}

	return nil
}

// DAGDrawer draws every node appended to a DAG once the DAG is finished.
// msr may be nil.
func DAGDrawer(drawer Drawer, msr measure.Measure) model.DAGOption {
	return &dagDrawer{drawer, msr}
}
