package main

import (
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/pkg/powerdag"
	"github.com/askiada/go-powerdag/pkg/segments"
)

// planner composes the fragments of a run, segment by segment.
type planner struct {
	builder     *powerdag.Builder
	instruments []string
	psdsPerJob  int
	tag         string
	logger      *zap.Logger
}

// analyzable returns the jobs seg is split into, or nil when seg cannot
// host a single job.
func (p *planner) analyzable(seg segments.Segment) (segments.List, error) {
	capacity, err := p.builder.Context().Capacity(p.psdsPerJob)
	if err != nil {
		return nil, err
	}
	if !powerdag.SegmentOK(seg, capacity) {
		p.logger.Warn("segment skipped, too short", zap.Stringer("segment", seg))

		return nil, nil
	}

	return powerdag.Split(seg, capacity)
}

// plainRun analyzes each segment for every instrument, clusters the
// triggers and, with several instruments, searches for coincidences.
func (p *planner) plainRun(list segments.List) error {
	for _, seg := range list {
		jobs, err := p.analyzable(seg)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			continue
		}

		clustered := make([]powerdag.Node, 0, len(p.instruments))
		for _, inst := range p.instruments {
			datafind, err := p.builder.Datafind(inst, seg)
			if err != nil {
				return err
			}
			lladd, err := p.builder.PowerSegment(datafind, seg, inst, p.psdsPerJob, p.tag)
			if err != nil {
				return err
			}
			cluster, err := p.builder.Bucluster([]powerdag.Node{lladd}, inst, seg, p.tag)
			if err != nil {
				return err
			}
			clustered = append(clustered, cluster)
		}

		if len(p.instruments) > 1 {
			if _, err := p.builder.Coincidence(clustered, p.instruments, seg, p.tag); err != nil {
				return err
			}
		}
	}

	return nil
}

// injectionRun analyzes each segment with software injections. The time
// slide table is shared by the run and the injections of a segment by its
// instruments.
func (p *planner) injectionRun(list segments.List) error {
	injTag := powerdag.InjectionTag(p.tag)

	var tisi *powerdag.FileNode
	for _, seg := range list {
		jobs, err := p.analyzable(seg)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			continue
		}

		if tisi == nil {
			tisi, err = p.builder.Tisi(injTag)
			if err != nil {
				return err
			}
		}
		extent, err := jobs.Extent()
		if err != nil {
			return err
		}
		binj, err := p.builder.MultiBinj(extent, injTag)
		if err != nil {
			return err
		}

		found := make([]powerdag.Node, 0, len(p.instruments))
		for _, inst := range p.instruments {
			datafind, err := p.builder.Datafind(inst, seg)
			if err != nil {
				return err
			}
			cut, err := p.builder.InjectionSegment(datafind, seg, inst, p.psdsPerJob, p.tag, binj, tisi)
			if err != nil {
				return err
			}
			node, err := p.builder.Binjfind([]powerdag.Node{cut}, inst, seg, injTag)
			if err != nil {
				return err
			}
			found = append(found, node)
		}

		if len(p.instruments) > 1 {
			if _, err := p.builder.Coincidence(found, p.instruments, seg, injTag); err != nil {
				return err
			}
		}
	}

	return nil
}
