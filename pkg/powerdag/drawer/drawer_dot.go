package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-powerdag/internal/store"
	"github.com/askiada/go-powerdag/pkg/powerdag/measure"
	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

// DOTDrawer renders the DAG in the graphviz DOT language. Nodes are filled
// with the colour of their job kind.
type DOTDrawer struct {
	graph      graph.Graph[string, string]
	store      store.CustomStore[string, string]
	kinds      map[string]model.NodeKind
	attributes map[string]string
	fileName   string
	wrt        io.Writer
}

func newDOTDrawer() *DOTDrawer {
	st := store.NewMemoryStore[string, string]()

	return &DOTDrawer{
		graph:      graph.NewWithStore(graph.StringHash, st, graph.Directed()),
		store:      st,
		kinds:      make(map[string]model.NodeKind),
		attributes: make(map[string]string),
	}
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	d := newDOTDrawer()
	d.fileName = fileName

	return d
}

// NewDOTWriterDrawer creates a drawer writing to wrt.
func NewDOTWriterDrawer(wrt io.Writer) *DOTDrawer {
	d := newDOTDrawer()
	d.wrt = wrt

	return d
}

var kindRGB = map[model.NodeKind][3]uint8{
	model.DatafindKind:  {166, 206, 227},
	model.BinjKind:      {251, 154, 153},
	model.PowerKind:     {178, 223, 138},
	model.LladdKind:     {253, 191, 111},
	model.TisiKind:      {202, 178, 214},
	model.BucutKind:     {255, 255, 153},
	model.BuclusterKind: {177, 89, 40},
	model.BinjfindKind:  {227, 26, 28},
	model.BurcaKind:     {51, 160, 44},
}

var defaultRGB = [3]uint8{211, 211, 211}

// KindColour returns the fill colour of the nodes of kind.
func KindColour(kind model.NodeKind) (string, error) {
	rgb, ok := kindRGB[kind]
	if !ok {
		rgb = defaultRGB
	}

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2]) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// AddNode adds a node to the DAG graph.
func (d *DOTDrawer) AddNode(node *model.NodeInfo) error {
	fill, err := KindColour(node.Kind)
	if err != nil {
		return err
	}

	attrs := []func(*graph.VertexProperties){
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("style", "filled"),
		graph.VertexAttribute("fillcolor", fill),
	}
	if duration := node.Duration(); duration > 0 {
		attrs = append(attrs, graph.VertexAttribute("xlabel", segments.FormatTime(duration)+"s"))
	}

	err = d.graph.AddVertex(node.Name, attrs...)
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	d.kinds[node.Name] = node.Kind

	return nil
}

// AddLink adds a link between a parent and a child node.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	err := d.graph.AddEdge(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure outlines every node with a colour going from blue for the kind
// covering the least data to red for the kind covering the most, and labels
// the graph with the node count of each kind.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	metrics := msr.AllMetrics()
	if len(metrics) == 0 {
		return nil
	}

	maxValue, minValue := -1.0, -1.0
	for _, mt := range metrics {
		covered := mt.Covered()
		if maxValue < 0 || covered > maxValue {
			maxValue = covered
		}
		if minValue < 0 || covered < minValue {
			minValue = covered
		}
	}

	outlines := make(map[model.NodeKind]string, len(metrics))
	for kind, mt := range metrics {
		fraction := 1.0
		if maxValue > minValue {
			fraction = (mt.Covered() - minValue) / (maxValue - minValue)
		}

		red := maxRGB * fraction
		blue := maxRGB - red

		colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}

		outlines[kind] = colour.ToHEX().String()
	}

	names, err := d.store.ListVertices()
	if err != nil {
		return errors.Wrap(err, "unable to list vertices")
	}
	for _, name := range names {
		outline, ok := outlines[d.kinds[name]]
		if !ok {
			continue
		}
		_, properties, err := d.graph.VertexWithProperties(name)
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}
		properties.Attributes["color"] = outline
	}

	var summary []string
	for _, kind := range model.AllKinds {
		mt, ok := metrics[kind]
		if !ok {
			continue
		}
		summary = append(summary, fmt.Sprintf("%s: %d", kind, mt.Nodes()))
	}
	d.attributes["label"] = strings.Join(summary, ", ")

	return nil
}

// Draw writes the DOT description of the DAG.
func (d *DOTDrawer) Draw() error {
	if d.wrt != nil {
		return d.dot(d.wrt)
	}

	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}

	err = d.dot(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func (d *DOTDrawer) dot(wrt io.Writer) error {
	desc, err := d.generateDOT()
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// generateDOT lists the nodes in the order they were added, each followed by
// the links to its children.
func (d *DOTDrawer) generateDOT() (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   d.attributes,
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	adjacencyMap, err := d.graph.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	names, err := d.store.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}

	for _, vertex := range names {
		_, sourceProperties, err := d.graph.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)
		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)

				continue
			}
			sourceAttributes[k] = v
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		sort.Slice(targets, func(i, j int) bool {
			return position[targets[i]] < position[targets[j]]
		})

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
