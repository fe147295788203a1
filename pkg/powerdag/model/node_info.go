package model

type NodeKind string

const (
	DatafindKind  NodeKind = "datafind"
	BinjKind      NodeKind = "binj"
	PowerKind     NodeKind = "power"
	LladdKind     NodeKind = "lladd"
	TisiKind      NodeKind = "tisi"
	BucutKind     NodeKind = "bucut"
	BuclusterKind NodeKind = "bucluster"
	BinjfindKind  NodeKind = "binjfind"
	BurcaKind     NodeKind = "burca"
)

// AllKinds lists every job kind in the order their templates are built.
var AllKinds = []NodeKind{
	DatafindKind,
	BinjKind,
	PowerKind,
	LladdKind,
	TisiKind,
	BinjfindKind,
	BucutKind,
	BuclusterKind,
	BurcaKind,
}

// NodeInfo is the read-only summary of a node handed to DAG options.
type NodeInfo struct {
	Kind    NodeKind
	Name    string
	Start   float64
	End     float64
	Inputs  []string
	Outputs []string
}

// Duration returns the amount of data the node is responsible for, or 0 for
// nodes without a time span.
func (n *NodeInfo) Duration() float64 {
	if n.End <= n.Start {
		return 0
	}

	return n.End - n.Start
}
