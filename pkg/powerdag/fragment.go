package powerdag

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

// Data discovery pads the analyzed span so that the frame cache also covers
// the data lost to filter transients.
const (
	DatafindPadBefore = 512
	DatafindPadAfter  = 1
)

// fratioMargin keeps fhigh reachable despite round-off when stepping the
// injection frequency by fratio.
const fratioMargin = 0.9999999

var nodePrefixes = map[model.NodeKind]string{
	model.DatafindKind:  "LSCdataFind",
	model.BinjKind:      "lalapps_binj",
	model.PowerKind:     "lalapps_power",
	model.LladdKind:     "lladd",
	model.TisiKind:      "ligolw_tisi",
	model.BucutKind:     "ligolw_bucut",
	model.BuclusterKind: "ligolw_bucluster",
	model.BinjfindKind:  "ligolw_binjfind",
	model.BurcaKind:     "ligolw_burca",
}

// Builder appends fragments to one DAG using the templates of one
// PipelineContext. Every builder method appends the nodes it creates before
// returning them, so they can be used as parents right away.
type Builder struct {
	pc  *PipelineContext
	dag *DAG
}

// NewBuilder creates a builder.
func NewBuilder(pc *PipelineContext, dag *DAG) (*Builder, error) {
	if pc == nil {
		return nil, errors.Wrap(ErrJobNotConfigured, "pipeline context must be set")
	}
	if dag == nil {
		return nil, ErrDAGMustBeSet
	}

	return &Builder{pc: pc, dag: dag}, nil
}

// DAG returns the DAG the builder appends to.
func (b *Builder) DAG() *DAG { return b.dag }

// Context returns the pipeline context of the builder.
func (b *Builder) Context() *PipelineContext { return b.pc }

func checkSegment(seg segments.Segment) error {
	if seg.IsEmpty() {
		return errors.Wrapf(ErrInvalidSegment, "%s", seg)
	}

	return nil
}

// Datafind locates the data of instrument over seg, padded by
// DatafindPadBefore and DatafindPadAfter seconds.
func (b *Builder) Datafind(instrument string, seg segments.Segment) (*DatafindNode, error) {
	if instrument == "" {
		return nil, ErrMissingInstrument
	}
	if err := checkSegment(seg); err != nil {
		return nil, err
	}
	job, err := b.pc.Job(model.DatafindKind)
	if err != nil {
		return nil, err
	}

	padded := seg.Protract(DatafindPadBefore, DatafindPadAfter)
	observatory := instrument[:1]
	node := &DatafindNode{
		baseNode:    newBaseNode(job, NodeName(nodePrefixes[model.DatafindKind], instrument, "", seg), padded),
		Observatory: observatory,
		output:      FrameCacheName(b.pc.CacheDir, observatory, padded),
	}
	node.AddOption("observatory", observatory)
	node.AddOption("gps-start-time", segments.FormatTime(padded.Start))
	node.AddOption("gps-end-time", segments.FormatTime(padded.End))
	node.AddOption("output", node.output)
	node.DeclareOutput(node.output)
	if job.PostScript != "" {
		node.postScript = fmt.Sprintf("%s --dagman-return $RETURN --gps-start-time %s --gps-end-time %s %s",
			job.PostScript, segments.FormatTime(seg.Start), segments.FormatTime(seg.End), node.output)
	}

	if err := b.dag.AddNode(node); err != nil {
		return nil, err
	}

	return node, nil
}

// floorMod is the remainder of a/p with the sign of p.
func floorMod(a, p float64) float64 {
	m := math.Mod(a, p)
	if m < 0 {
		m += p
	}

	return m
}

// Binj generates injections between flow and fhigh over seg. The start time
// is aligned on the injection period so that adjacent segments inject at
// the same phase; offset shifts it by a fraction of the period.
func (b *Builder) Binj(seg segments.Segment, tag string, offset, flow, fhigh float64) (*InjectionNode, error) {
	if err := checkSegment(seg); err != nil {
		return nil, err
	}
	if flow <= 0 || fhigh <= flow {
		return nil, errors.Wrapf(ErrInvalidBand, "[%g, %g]", flow, fhigh)
	}
	job, err := b.pc.Job(model.BinjKind)
	if err != nil {
		return nil, err
	}

	bands := float64(b.pc.InjectionBands)
	fratio := fratioMargin * math.Pow(fhigh/flow, 1/bands)
	period := bands * b.pc.TimeStep / math.Pi
	if period <= 0 {
		return nil, errors.Wrapf(ErrJobNotConfigured, "injection period must be positive, got %g", period)
	}
	start := seg.Start - floorMod(seg.Start, period) + period*offset

	span := segments.New(start, seg.End)
	if err := checkSegment(span); err != nil {
		return nil, err
	}

	name := NodeName(nodePrefixes[model.BinjKind], "", tag, span) + "-" + strconv.Itoa(int(flow))
	node := &InjectionNode{
		baseNode: newBaseNode(job, name, span),
		Tag:      tag,
		output:   InjectionFileName(tag, span),
	}
	node.AddOption("gps-start-time", segments.FormatTime(span.Start))
	node.AddOption("gps-end-time", segments.FormatTime(span.End))
	if tag != "" {
		node.AddOption("user-tag", tag)
	}
	node.AddMacro("macroflow", strconv.FormatFloat(flow, 'f', -1, 64))
	node.AddMacro("macrofhigh", strconv.FormatFloat(fhigh, 'f', -1, 64))
	node.AddMacro("macrofratio", strconv.FormatFloat(fratio, 'f', -1, 64))
	now := float64(b.pc.Clock().Now().UnixNano()) / 1e9
	node.AddMacro("macroseed", strconv.FormatInt(int64(now+start), 10))
	node.DeclareOutput(node.output)

	if err := b.dag.AddNode(node); err != nil {
		return nil, err
	}

	return node, nil
}

// Power analyzes seg of instrument. frameCache is the data manifest the job
// reads; each injection file is passed as an option and declared as input.
func (b *Builder) Power(parents []Node, instrument string, seg segments.Segment, tag, frameCache string, injections ...InjectionFile) (*PowerNode, error) {
	if instrument == "" {
		return nil, ErrMissingInstrument
	}
	if tag == "" {
		return nil, errors.Wrap(ErrMissingTag, "analysis job")
	}
	if err := checkSegment(seg); err != nil {
		return nil, err
	}
	job, err := b.pc.Job(model.PowerKind)
	if err != nil {
		return nil, err
	}
	overrides, ok := job.InstrumentOptions[instrument]
	if !ok {
		return nil, errors.Wrapf(ErrJobNotConfigured, "no [%s%s] section", powerInstrumentPrefix, instrument)
	}

	node := &PowerNode{
		baseNode:   newBaseNode(job, NodeName(nodePrefixes[model.PowerKind], instrument, tag, seg), seg),
		Instrument: instrument,
		Tag:        tag,
		output:     PowerFileName(instrument, tag, seg),
	}
	for _, parent := range parents {
		node.AddParent(parent)
	}
	if frameCache != "" {
		node.SetFrameCache(frameCache)
	}
	for _, opt := range overrides {
		node.AddArgument(fmt.Sprintf("--%s %s", opt.Key, opt.Value))
	}
	node.AddOption("gps-start-time", segments.FormatTime(seg.Start))
	node.AddOption("gps-end-time", segments.FormatTime(seg.End))
	node.AddOption("user-tag", tag)
	for _, inj := range injections {
		node.SetInjection(inj)
	}
	node.DeclareOutput(node.output)

	if err := b.dag.AddNode(node); err != nil {
		return nil, err
	}

	return node, nil
}

// Tisi writes the time slide table of tag. It has no time dependency.
func (b *Builder) Tisi(tag string) (*FileNode, error) {
	if tag == "" {
		return nil, errors.Wrap(ErrMissingTag, "time slide job")
	}
	job, err := b.pc.Job(model.TisiKind)
	if err != nil {
		return nil, err
	}

	node := &FileNode{
		baseNode: newBaseNode(job, nodePrefixes[model.TisiKind]+"-"+tag, segments.Segment{}),
		Tag:      tag,
	}
	node.AddFileArg(TisiFileName(tag))
	node.AddMacro("macrocomment", tag)

	if err := b.dag.AddNode(node); err != nil {
		return nil, err
	}

	return node, nil
}

// Lladd merges the outputs of parents, in the order they are given, into one
// file. The manifest listing them is written to disk once the DAG has
// accepted the node and before it is appended, so a rejected node never
// touches the manifest of an existing one. An empty output selects the
// default name.
func (b *Builder) Lladd(parents []Node, instrument string, seg segments.Segment, tag, output string) (*AddNode, error) {
	if tag == "" {
		return nil, errors.Wrap(ErrMissingTag, "aggregation job")
	}
	if err := checkSegment(seg); err != nil {
		return nil, err
	}
	job, err := b.pc.Job(model.LladdKind)
	if err != nil {
		return nil, err
	}

	if output == "" {
		output = AddFileName(instrument, tag, seg)
	}
	label := instrument
	if label == "" {
		label = AnyInstrument
	}

	node := &AddNode{
		baseNode:   newBaseNode(job, NodeName(nodePrefixes[model.LladdKind], label, tag, seg), seg),
		Instrument: instrument,
		Tag:        tag,
		CachePath:  AddCacheName(b.pc.CacheDir, instrument, tag, seg),
		Cache:      &Cache{},
		output:     output,
	}
	for _, parent := range parents {
		node.AddParent(parent)
		for _, path := range parent.Outputs() {
			node.Cache.Add(CacheLabelAny, CacheOriginEmpty, seg, path)
		}
	}
	node.AddOption("input-cache", node.CachePath)
	node.DeclareInput(node.CachePath)
	node.AddOption("output", output)
	node.DeclareOutput(output)

	err = b.dag.addNode(node, func() error {
		return node.Cache.WriteFile(node.CachePath)
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

func (b *Builder) fileStage(kind model.NodeKind, parents []Node, instrument string, seg segments.Segment, tag string) (*FileNode, error) {
	if err := checkSegment(seg); err != nil {
		return nil, err
	}
	job, err := b.pc.Job(kind)
	if err != nil {
		return nil, err
	}

	node := &FileNode{
		baseNode: newBaseNode(job, NodeName(nodePrefixes[kind], instrument, tag, seg), seg),
		Tag:      tag,
	}
	for _, parent := range parents {
		node.AddParent(parent)
		for _, path := range parent.Outputs() {
			node.AddFileArg(path)
		}
	}
	node.AddMacro("macrocomment", tag)

	if err := b.dag.AddNode(node); err != nil {
		return nil, err
	}

	return node, nil
}

// Bucut applies the event cuts to the outputs of parents in place.
func (b *Builder) Bucut(parents []Node, instrument string, seg segments.Segment, tag string) (*FileNode, error) {
	return b.fileStage(model.BucutKind, parents, instrument, seg, tag)
}

// Bucluster clusters the events of the outputs of parents in place.
func (b *Builder) Bucluster(parents []Node, instrument string, seg segments.Segment, tag string) (*FileNode, error) {
	return b.fileStage(model.BuclusterKind, parents, instrument, seg, tag)
}

// Burca searches the outputs of parents for coincident events.
func (b *Builder) Burca(parents []Node, instrument string, seg segments.Segment, tag string) (*FileNode, error) {
	return b.fileStage(model.BurcaKind, parents, instrument, seg, tag)
}

// Binjfind clusters the outputs of parents, then matches the clustered
// events against the injections. It returns the matching node.
func (b *Builder) Binjfind(parents []Node, instrument string, seg segments.Segment, tag string) (*FileNode, error) {
	cluster, err := b.Bucluster(parents, instrument, seg, tag)
	if err != nil {
		return nil, err
	}

	node, err := b.fileStage(model.BinjfindKind, []Node{cluster}, instrument, seg, tag)
	if err != nil {
		return nil, err
	}

	b.pc.Logger().Debug("injection finding wired",
		zap.String("cluster", cluster.Name()),
		zap.String("binjfind", node.Name()),
	)

	return node, nil
}
