package powerdag

import (
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/internal/store"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

// DAG is the append-only graph of jobs. A node can only be appended after all
// of its parents, so the graph is acyclic by construction and the append
// order is a valid submission order.
type DAG struct {
	opts   []model.DAGOption
	store  store.CustomStore[string, Node]
	graph  graph.Graph[string, Node]
	logger *zap.Logger

	// producers maps every declared output to the nodes writing it, in DAG
	// order.
	producers map[string][]string
}

func nodeHash(n Node) string {
	return n.Name()
}

// New creates an empty DAG. logger may be nil.
func New(logger *zap.Logger, opts ...model.DAGOption) (*DAG, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := store.NewMemoryStore[string, Node]()
	dag := &DAG{
		opts:      opts,
		store:     st,
		graph:     graph.NewWithStore(nodeHash, st, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
		logger:    logger,
		producers: make(map[string][]string),
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply dag option")
		}
	}

	return dag, nil
}

// AddNode appends n to the DAG and freezes it. Every parent of n must already
// be in the DAG, and every input of n written by nodes of the DAG must be
// written by at least one of its parents.
func (d *DAG) AddNode(n Node) error {
	return d.addNode(n, nil)
}

// addNode appends n like AddNode. beforeAppend runs once n has passed every
// check and before the hooks see it; an error from it rejects n.
func (d *DAG) addNode(n Node, beforeAppend func() error) error {
	if d == nil {
		return ErrDAGMustBeSet
	}
	if n == nil {
		return ErrNodeMustBeSet
	}

	parentInfos, err := d.check(n)
	if err != nil {
		return err
	}
	if beforeAppend != nil {
		if err := beforeAppend(); err != nil {
			return err
		}
	}

	name := n.Name()
	parents := n.Parents()
	info := n.base().info()
	for _, opt := range d.opts {
		err := opt.PrepareNode(parentInfos, info)
		if err != nil {
			return errors.Wrapf(err, "unable to prepare node %s", name)
		}
	}

	err = d.graph.AddVertex(n, graph.VertexAttribute("kind", string(n.Job().Kind)))
	if err != nil {
		return errors.Wrapf(err, "unable to add node %s", name)
	}
	for _, parent := range parents {
		err := d.graph.AddEdge(parent.Name(), name)
		if err != nil {
			return errors.Wrapf(err, "unable to add edge from %s to %s", parent.Name(), name)
		}
	}

	for _, output := range n.Outputs() {
		d.producers[output] = append(d.producers[output], name)
	}
	n.base().frozen = true

	d.logger.Debug("node added",
		zap.String("name", name),
		zap.String("kind", string(n.Job().Kind)),
		zap.Int("parents", len(parents)),
		zap.Strings("outputs", n.Outputs()),
	)

	return nil
}

// check rejects duplicate names, unknown parents and unwired inputs. It
// returns the parents of n as seen by the hooks.
func (d *DAG) check(n Node) ([]*model.NodeInfo, error) {
	name := n.Name()
	if _, _, err := d.store.Vertex(name); err == nil || n.Frozen() {
		return nil, errors.Wrap(ErrDuplicateNode, name)
	}

	parents := n.Parents()
	parentNames := make(map[string]struct{}, len(parents))
	parentInfos := make([]*model.NodeInfo, 0, len(parents))
	for _, parent := range parents {
		if _, _, err := d.store.Vertex(parent.Name()); err != nil {
			return nil, errors.Wrapf(ErrUnknownParent, "%s of %s", parent.Name(), name)
		}
		parentNames[parent.Name()] = struct{}{}
		parentInfos = append(parentInfos, parent.base().info())
	}

	for _, input := range n.Inputs() {
		producers, ok := d.producers[input]
		if !ok {
			continue
		}
		wired := false
		for _, producer := range producers {
			if _, ok := parentNames[producer]; ok {
				wired = true

				break
			}
		}
		if !wired {
			return nil, errors.Wrapf(ErrUnwiredInput, "%s reads %s written by %v", name, input, producers)
		}
	}

	return parentInfos, nil
}

// Node returns the node called name.
func (d *DAG) Node(name string) (Node, bool) {
	n, _, err := d.store.Vertex(name)
	if err != nil {
		return nil, false
	}

	return n, true
}

// Nodes returns every node in the order it was appended.
func (d *DAG) Nodes() []Node {
	names, _ := d.store.ListVertices()
	res := make([]Node, 0, len(names))
	for _, name := range names {
		n, _, err := d.store.Vertex(name)
		if err != nil {
			continue
		}
		res = append(res, n)
	}

	return res
}

// Len returns the number of nodes.
func (d *DAG) Len() int {
	count, _ := d.store.VertexCount()

	return count
}

// ParentsOf returns the names of the parents of name in the order the edges
// were added.
func (d *DAG) ParentsOf(name string) []string {
	return d.store.Predecessors(name)
}

// ChildrenOf returns the names of the children of name in DAG order.
func (d *DAG) ChildrenOf(name string) ([]string, error) {
	adjacency, err := d.graph.AdjacencyMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get adjacency map")
	}

	targets, ok := adjacency[name]
	if !ok {
		return nil, errors.Wrapf(graph.ErrVertexNotFound, "%s", name)
	}

	names, _ := d.store.ListVertices()
	res := make([]string, 0, len(targets))
	for _, n := range names {
		if _, ok := targets[n]; ok {
			res = append(res, n)
		}
	}

	return res, nil
}

// Producer returns the name of the last node declaring path as an output.
func (d *DAG) Producer(path string) (string, bool) {
	names, ok := d.producers[path]
	if !ok {
		return "", false
	}

	return names[len(names)-1], true
}

// TopologicalOrder returns a topological ordering of the node names.
func (d *DAG) TopologicalOrder() ([]string, error) {
	order, err := graph.TopologicalSort(d.graph)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort dag")
	}

	return order, nil
}

// Finish runs the Finish hook of every DAG option.
func (d *DAG) Finish() error {
	for _, opt := range d.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish dag option")
		}
	}

	return nil
}
