package powerdag

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

// Node is one unit of work bound to a JobTemplate.
//
// The mutators only change the declared state of the node. Once a node has
// been appended to a DAG it is frozen and calling any mutator panics with
// ErrNodeFrozen.
type Node interface {
	Name() string
	Job() *JobTemplate
	// Span is the data the node is responsible for. It is empty for nodes
	// without a time dependency.
	Span() segments.Segment

	Options() []Option
	Macros() []Option
	Arguments() []string
	Inputs() []string
	Outputs() []string
	Parents() []Node
	PostScript() string
	Frozen() bool

	AddOption(key, value string)
	AddMacro(key, value string)
	AddArgument(value string)
	DeclareInput(path string)
	DeclareOutput(path string)
	AddParent(parent Node)

	base() *baseNode
}

type baseNode struct {
	name       string
	job        *JobTemplate
	span       segments.Segment
	options    []Option
	macros     []Option
	arguments  []string
	inputs     []string
	outputs    []string
	parents    []Node
	postScript string
	frozen     bool
}

func newBaseNode(job *JobTemplate, name string, span segments.Segment) baseNode {
	return baseNode{
		name: name,
		job:  job,
		span: span,
	}
}

func (n *baseNode) base() *baseNode { return n }

func (n *baseNode) Name() string { return n.name }

func (n *baseNode) Job() *JobTemplate { return n.job }

func (n *baseNode) Span() segments.Segment { return n.span }

func (n *baseNode) Options() []Option { return append([]Option(nil), n.options...) }

func (n *baseNode) Macros() []Option { return append([]Option(nil), n.macros...) }

func (n *baseNode) Arguments() []string { return append([]string(nil), n.arguments...) }

func (n *baseNode) Inputs() []string { return append([]string(nil), n.inputs...) }

func (n *baseNode) Outputs() []string { return append([]string(nil), n.outputs...) }

func (n *baseNode) Parents() []Node { return append([]Node(nil), n.parents...) }

func (n *baseNode) PostScript() string { return n.postScript }

func (n *baseNode) Frozen() bool { return n.frozen }

func (n *baseNode) mustNotBeFrozen() {
	if n.frozen {
		panic(errors.Wrap(ErrNodeFrozen, n.name))
	}
}

// AddOption sets a variable option. Setting a key twice keeps its first
// position and the last value.
func (n *baseNode) AddOption(key, value string) {
	n.mustNotBeFrozen()
	n.options = setOption(n.options, key, value)
}

func (n *baseNode) AddMacro(key, value string) {
	n.mustNotBeFrozen()
	n.macros = setOption(n.macros, key, value)
}

func (n *baseNode) AddArgument(value string) {
	n.mustNotBeFrozen()
	n.arguments = append(n.arguments, value)
}

func (n *baseNode) DeclareInput(path string) {
	n.mustNotBeFrozen()
	n.inputs = appendUnique(n.inputs, path)
}

func (n *baseNode) DeclareOutput(path string) {
	n.mustNotBeFrozen()
	n.outputs = appendUnique(n.outputs, path)
}

func (n *baseNode) AddParent(parent Node) {
	n.mustNotBeFrozen()
	for _, p := range n.parents {
		if p.Name() == parent.Name() {
			return
		}
	}
	n.parents = append(n.parents, parent)
}

func (n *baseNode) info() *model.NodeInfo {
	return &model.NodeInfo{
		Kind:    n.job.Kind,
		Name:    n.name,
		Start:   n.span.Start,
		End:     n.span.End,
		Inputs:  n.Inputs(),
		Outputs: n.Outputs(),
	}
}

func setOption(opts []Option, key, value string) []Option {
	for i := range opts {
		if opts[i].Key == key {
			opts[i].Value = value

			return opts
		}
	}

	return append(opts, Option{Key: key, Value: value})
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}

	return append(list, s)
}

// DatafindNode locates the raw data of one instrument and writes it to a
// frame cache.
type DatafindNode struct {
	baseNode
	Observatory string
	output      string
}

// Output is the frame cache written by the node.
func (n *DatafindNode) Output() string { return n.output }

// InjectionNode generates a list of simulated signals.
type InjectionNode struct {
	baseNode
	Tag    string
	output string
}

// Output is the injection file written by the node.
func (n *InjectionNode) Output() string { return n.output }

// InjectionFile is an auxiliary input handed to the analysis jobs.
type InjectionFile struct {
	// Option is the analysis command line option carrying the file, for
	// example "burstinjection-file".
	Option string
	Path   string
}

const (
	BurstInjectionOption    = "burstinjection-file"
	InspiralInjectionOption = "inspiralinjection-file"
	SimInjectionOption      = "siminjection-file"
	MDCCacheOption          = "mdc-cache"
)

// PowerNode runs the excess power search over one split interval.
type PowerNode struct {
	baseNode
	Instrument string
	Tag        string
	output     string
}

// Output is the trigger file written by the node.
func (n *PowerNode) Output() string { return n.output }

// SetFrameCache sets the frame cache the job reads its data from.
func (n *PowerNode) SetFrameCache(path string) {
	n.AddOption("frame-cache", path)
	n.DeclareInput(path)
}

// SetInjection passes an auxiliary injection or MDC file to the job.
func (n *PowerNode) SetInjection(inj InjectionFile) {
	n.AddOption(inj.Option, inj.Path)
	n.DeclareInput(inj.Path)
}

// AddNode merges the outputs of its parents, read from a cache manifest, into
// a single file.
type AddNode struct {
	baseNode
	Instrument string
	Tag        string
	CachePath  string
	Cache      *Cache
	output     string
}

// Output is the merged file written by the node.
func (n *AddNode) Output() string { return n.output }

// FileNode is a job that rewrites its file arguments in place, so its
// outputs carry the same names as its inputs.
type FileNode struct {
	baseNode
	Tag string
}

// AddFileArg passes path on the command line as both input and output.
func (n *FileNode) AddFileArg(path string) {
	n.AddArgument(path)
	n.DeclareInput(path)
	n.DeclareOutput(path)
}
