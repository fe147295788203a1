package powerdag

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
	"github.com/askiada/go-powerdag/pkg/segments"
)

const (
	powerTagPrefix     = "POWER_"
	injectionTagPrefix = "INJECTIONS_"
)

// InjectionTag is the tag of the injection run of tag.
func InjectionTag(tag string) string {
	return injectionTagPrefix + tag
}

// MultiPower runs one analysis job per interval of list and merges their
// outputs, followed by the outputs of lladdParents, into one file keyed on
// seg.
func (b *Builder) MultiPower(
	powerParents, lladdParents []Node,
	frameCache string,
	seg segments.Segment,
	list segments.List,
	instrument, tag string,
	injections ...InjectionFile,
) (*AddNode, error) {
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNoJobs, "%s", seg)
	}

	parents := make([]Node, 0, len(list)+len(lladdParents))
	for _, sub := range list {
		node, err := b.Power(powerParents, instrument, sub, tag, frameCache, injections...)
		if err != nil {
			return nil, err
		}
		parents = append(parents, node)
	}
	parents = append(parents, lladdParents...)

	return b.Lladd(parents, instrument, seg, powerTagPrefix+tag, PowerFileName(instrument, tag, seg))
}

func (b *Builder) split(seg segments.Segment, slotsPerJob int, msg string) (segments.List, error) {
	capacity, err := b.pc.Capacity(slotsPerJob)
	if err != nil {
		return nil, err
	}
	list, err := Split(seg, capacity)
	if err != nil {
		return nil, err
	}

	jobs := make([]string, len(list))
	for i, sub := range list {
		jobs[i] = sub.String()
	}
	b.pc.Logger().Info(msg,
		zap.Stringer("segment", seg),
		zap.Strings("jobs", jobs),
	)

	if len(list) == 0 {
		return nil, errors.Wrapf(ErrNoJobs, "%s", seg)
	}

	return list, nil
}

// PowerSegment analyzes the whole of seg with as many analysis jobs as its
// split requires, reading the data located by datafind.
func (b *Builder) PowerSegment(datafind *DatafindNode, seg segments.Segment, instrument string, slotsPerJob int, tag string) (*AddNode, error) {
	if datafind == nil {
		return nil, errors.Wrap(ErrNodeMustBeSet, "datafind")
	}
	list, err := b.split(seg, slotsPerJob, "segment split")
	if err != nil {
		return nil, err
	}

	return b.MultiPower([]Node{datafind}, nil, datafind.Output(), seg, list, instrument, tag)
}

// MultiBinj generates the injections of seg over the analysis band and
// merges them into HL-<tag>-<start>-<duration>.xml.
func (b *Builder) MultiBinj(seg segments.Segment, tag string) (*AddNode, error) {
	power, err := b.pc.Job(model.PowerKind)
	if err != nil {
		return nil, err
	}
	flow, err := staticFloat(power, "low-freq-cutoff")
	if err != nil {
		return nil, err
	}
	bandwidth, err := staticFloat(power, "bandwidth")
	if err != nil {
		return nil, err
	}

	binj, err := b.Binj(seg, tag, 0, flow, flow+bandwidth)
	if err != nil {
		return nil, err
	}

	return b.Lladd([]Node{binj}, AnyInstrument, seg, tag, AddFileName("HL", tag, seg))
}

func staticFloat(job *JobTemplate, key string) (float64, error) {
	val, ok := job.StaticOption(key)
	if !ok {
		return 0, errors.Wrapf(ErrJobNotConfigured, "missing %s option %q", job.Kind, key)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrJobNotConfigured, "%s option %q: %q is not a number", job.Kind, key, val)
	}

	return f, nil
}

// InjectionSegment analyzes seg with injections. binj and tisi are reused
// when set and built with the injection tag otherwise. The injection file is
// handed to every analysis job, and the merged output is cut. It returns the
// cut node.
func (b *Builder) InjectionSegment(
	datafind *DatafindNode,
	seg segments.Segment,
	instrument string,
	slotsPerJob int,
	tag string,
	binj *AddNode,
	tisi *FileNode,
) (*FileNode, error) {
	if datafind == nil {
		return nil, errors.Wrap(ErrNodeMustBeSet, "datafind")
	}
	list, err := b.split(seg, slotsPerJob, "injections split")
	if err != nil {
		return nil, err
	}

	injTag := InjectionTag(tag)
	if binj == nil {
		extent, err := list.Extent()
		if err != nil {
			return nil, err
		}
		binj, err = b.MultiBinj(extent, injTag)
		if err != nil {
			return nil, err
		}
	}
	if tisi == nil {
		tisi, err = b.Tisi(injTag)
		if err != nil {
			return nil, err
		}
	}

	lladd, err := b.MultiPower(
		[]Node{datafind, binj},
		[]Node{binj, tisi},
		datafind.Output(),
		seg, list, instrument, injTag,
		InjectionFile{Option: BurstInjectionOption, Path: binj.Output()},
	)
	if err != nil {
		return nil, err
	}

	return b.Bucut([]Node{lladd}, instrument, seg, injTag)
}

// Coincidence merges the per-instrument results in parents into one
// multi-instrument file and searches it for coincidences. It needs at least
// two instruments. It returns the coincidence node.
func (b *Builder) Coincidence(parents []Node, instruments []string, seg segments.Segment, tag string) (*FileNode, error) {
	if len(instruments) == 0 {
		return nil, ErrMissingInstrument
	}
	if len(instruments) < 2 {
		return nil, errors.Wrapf(ErrTooFewInstruments, "%v", instruments)
	}
	if tag == "" {
		return nil, errors.Wrap(ErrMissingTag, "coincidence")
	}

	joined := strings.Join(instruments, "")
	lladd, err := b.Lladd(parents, joined, seg, powerTagPrefix+tag, MultiInstrumentFileName(instruments, powerTagPrefix+tag, seg))
	if err != nil {
		return nil, err
	}

	return b.Burca([]Node{lladd}, joined, seg, tag)
}
