package powerdag

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

func testFileNode(name string, kind model.NodeKind, outputs ...string) *FileNode {
	n := &FileNode{baseNode: newBaseNode(&JobTemplate{Kind: kind}, name, segments.New(0, 10))}
	for _, out := range outputs {
		n.DeclareOutput(out)
	}

	return n
}

type recordingOption struct {
	newCalls    int
	prepared    []string
	parentsSeen map[string][]string
	finished    bool
}

func (r *recordingOption) New() error {
	r.newCalls++
	r.parentsSeen = make(map[string][]string)

	return nil
}

func (r *recordingOption) PrepareNode(parents []*model.NodeInfo, node *model.NodeInfo) error {
	r.prepared = append(r.prepared, node.Name)
	for _, p := range parents {
		r.parentsSeen[node.Name] = append(r.parentsSeen[node.Name], p.Name)
	}

	return nil
}

func (r *recordingOption) Finish() error {
	r.finished = true

	return nil
}

func TestDAGAppendOrder(t *testing.T) {
	t.Parallel()

	opt := &recordingOption{}
	dag, err := New(nil, opt)
	require.NoError(t, err)
	assert.Equal(t, 1, opt.newCalls)

	root := testFileNode("datafind", model.DatafindKind, "frames.cache")
	second := testFileNode("power-b", model.PowerKind, "b.xml")
	first := testFileNode("power-a", model.PowerKind, "a.xml")
	second.AddParent(root)
	second.DeclareInput("frames.cache")
	first.AddParent(root)
	merge := testFileNode("lladd", model.LladdKind, "merged.xml")
	merge.AddParent(second)
	merge.AddParent(first)

	for _, n := range []Node{root, second, first, merge} {
		require.NoError(t, dag.AddNode(n))
	}

	names := make([]string, 0, dag.Len())
	for _, n := range dag.Nodes() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"datafind", "power-b", "power-a", "lladd"}, names)
	assert.Equal(t, names, opt.prepared)
	assert.Equal(t, []string{"power-b", "power-a"}, opt.parentsSeen["lladd"])
	assert.Equal(t, []string{"power-b", "power-a"}, dag.ParentsOf("lladd"))

	children, err := dag.ChildrenOf("datafind")
	require.NoError(t, err)
	assert.Equal(t, []string{"power-b", "power-a"}, children)

	order, err := dag.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order, 4)
	assert.Equal(t, "datafind", order[0])
	assert.Equal(t, "lladd", order[3])

	got, ok := dag.Node("power-a")
	require.True(t, ok)
	assert.Same(t, first, got)
	_, ok = dag.Node("missing")
	assert.False(t, ok)

	producer, ok := dag.Producer("a.xml")
	require.True(t, ok)
	assert.Equal(t, "power-a", producer)

	require.NoError(t, dag.Finish())
	assert.True(t, opt.finished)
}

func TestDAGRejectsDuplicate(t *testing.T) {
	t.Parallel()

	dag, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, dag.AddNode(testFileNode("tisi", model.TisiKind)))
	err = dag.AddNode(testFileNode("tisi", model.TisiKind))
	assert.True(t, errors.Is(err, ErrDuplicateNode))
	assert.Equal(t, 1, dag.Len())
}

func TestDAGRejectsUnknownParent(t *testing.T) {
	t.Parallel()

	dag, err := New(nil)
	require.NoError(t, err)

	orphan := testFileNode("bucut", model.BucutKind)
	orphan.AddParent(testFileNode("lladd", model.LladdKind))
	err = dag.AddNode(orphan)
	assert.True(t, errors.Is(err, ErrUnknownParent))
	assert.False(t, orphan.Frozen())
	assert.Equal(t, 0, dag.Len())
}

func TestDAGRejectsUnwiredInput(t *testing.T) {
	t.Parallel()

	dag, err := New(nil)
	require.NoError(t, err)

	producer := testFileNode("lladd", model.LladdKind, "merged.xml")
	require.NoError(t, dag.AddNode(producer))

	reader := testFileNode("bucut", model.BucutKind)
	reader.AddFileArg("merged.xml")
	err = dag.AddNode(reader)
	assert.True(t, errors.Is(err, ErrUnwiredInput))

	reader = testFileNode("bucut", model.BucutKind)
	reader.AddParent(producer)
	reader.AddFileArg("merged.xml")
	require.NoError(t, dag.AddNode(reader))

	// merged.xml is now written by both nodes; a child of either one is wired
	cluster := testFileNode("bucluster", model.BuclusterKind)
	cluster.AddParent(reader)
	cluster.AddFileArg("merged.xml")
	require.NoError(t, dag.AddNode(cluster))

	producerName, ok := dag.Producer("merged.xml")
	require.True(t, ok)
	assert.Equal(t, "bucluster", producerName)
}

func TestDAGExternalInputsNeedNoParent(t *testing.T) {
	t.Parallel()

	dag, err := New(nil)
	require.NoError(t, err)

	n := testFileNode("power", model.PowerKind, "out.xml")
	n.DeclareInput("/data/frames.cache")
	require.NoError(t, dag.AddNode(n))
}

func TestFrozenNodePanics(t *testing.T) {
	t.Parallel()

	dag, err := New(nil)
	require.NoError(t, err)

	n := testFileNode("tisi", model.TisiKind, "tisi_tag.xml")
	require.NoError(t, dag.AddNode(n))
	require.True(t, n.Frozen())

	for name, mutate := range map[string]func(){
		"option":   func() { n.AddOption("user-tag", "x") },
		"macro":    func() { n.AddMacro("macrocomment", "x") },
		"argument": func() { n.AddArgument("x") },
		"input":    func() { n.DeclareInput("x") },
		"output":   func() { n.DeclareOutput("x") },
		"parent":   func() { n.AddParent(testFileNode("other", model.TisiKind)) },
	} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, name)
				perr, ok := r.(error)
				require.True(t, ok, name)
				assert.True(t, errors.Is(perr, ErrNodeFrozen), name)
			}()
			mutate()
		}()
	}

	assert.True(t, errors.Is(dag.AddNode(n), ErrDuplicateNode))
}

func TestNodeListsAreDeduplicated(t *testing.T) {
	t.Parallel()

	parent := testFileNode("parent", model.LladdKind)
	n := testFileNode("child", model.BucutKind)
	n.AddParent(parent)
	n.AddParent(parent)
	n.AddFileArg("a.xml")
	n.AddFileArg("b.xml")
	n.AddFileArg("a.xml")
	n.AddOption("user-tag", "first")
	n.AddOption("gps-start-time", "0")
	n.AddOption("user-tag", "second")

	assert.Len(t, n.Parents(), 1)
	assert.Equal(t, []string{"a.xml", "b.xml"}, n.Inputs())
	assert.Equal(t, []string{"a.xml", "b.xml"}, n.Outputs())
	assert.Equal(t, []string{"a.xml", "b.xml", "a.xml"}, n.Arguments())
	assert.Equal(t, []Option{{Key: "user-tag", Value: "second"}, {Key: "gps-start-time", Value: "0"}}, n.Options())
}

func TestAddNodeNil(t *testing.T) {
	t.Parallel()

	var dag *DAG
	assert.ErrorIs(t, dag.AddNode(testFileNode("a", model.TisiKind)), ErrDAGMustBeSet)

	dag, err := New(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, dag.AddNode(nil), ErrNodeMustBeSet)
}
