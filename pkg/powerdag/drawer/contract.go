package drawer

import (
	"github.com/askiada/go-powerdag/pkg/powerdag/measure"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

// Drawer is an interface that defines the methods for drawing a DAG.
type Drawer interface {
	// AddNode adds a node to the drawing.
	AddNode(node *model.NodeInfo) error
	// AddLink adds a link between a parent and a child node.
	AddLink(parentName, childName string) error
	// AddMeasure annotates the drawing with construction statistics.
	AddMeasure(msr measure.Measure) error
	// Draw renders the drawing.
	Draw() error
}
