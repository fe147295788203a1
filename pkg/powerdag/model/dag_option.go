package model

// DAGOption defines the interface for DAG options.
type DAGOption interface {
	// New initialises the DAG option.
	New() error
	// PrepareNode runs every time a node is appended to the DAG, after its
	// parents have been checked and before the node is frozen.
	PrepareNode(parents []*NodeInfo, node *NodeInfo) error
	// Finish runs once the DAG is complete.
	Finish() error
}
