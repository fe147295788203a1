package powerdag

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/go-powerdag/pkg/segments"
)

// Capacity describes how much data one analysis job processes. All lengths
// are in seconds.
type Capacity struct {
	// UnitLength is the data covered by one slot (one PSD average).
	UnitLength float64
	// WindowLength and WindowShift define the overlap between consecutive slots.
	WindowLength float64
	WindowShift  float64
	// EdgeLoss is the margin lost to filter transients at each end of a job.
	EdgeLoss float64
	// SlotsPerJob is the number of slots one job analyzes.
	SlotsPerJob int
}

// SlotOverlap is the data shared by consecutive slots.
func (c Capacity) SlotOverlap() float64 {
	return c.WindowLength - c.WindowShift
}

// JobLength is the amount of input one job consumes.
func (c Capacity) JobLength() float64 {
	overlap := c.SlotOverlap()

	return float64(c.SlotsPerJob)*(c.UnitLength-overlap) + overlap + 2*c.EdgeLoss
}

// JobOverlap is the data shared by consecutive jobs.
func (c Capacity) JobOverlap() float64 {
	return 2*c.EdgeLoss + c.SlotOverlap()
}

// JobStride is the advance between the start times of consecutive jobs.
func (c Capacity) JobStride() float64 {
	return c.JobLength() - c.JobOverlap()
}

// Validate checks that the capacity can tile a segment.
func (c Capacity) Validate() error {
	switch {
	case c.SlotsPerJob <= 0:
		return errors.Wrapf(ErrInvalidCapacity, "slots per job must be positive, got %d", c.SlotsPerJob)
	case c.EdgeLoss < 0:
		return errors.Wrapf(ErrInvalidCapacity, "edge loss must not be negative, got %g", c.EdgeLoss)
	case c.SlotOverlap() < 0:
		return errors.Wrapf(ErrInvalidCapacity, "window shift %g exceeds window length %g", c.WindowShift, c.WindowLength)
	case c.UnitLength <= c.SlotOverlap():
		return errors.Wrapf(ErrInvalidCapacity, "unit length %g must exceed the slot overlap %g", c.UnitLength, c.SlotOverlap())
	}

	return nil
}

// Split divides seg into the overlapping intervals analyzed by individual
// jobs. Consecutive intervals overlap by JobOverlap so that the data lost to
// edge effects and slot overlap is shared rather than skipped.
//
// Whole jobs are laid down first. If the remainder can still host at least
// one slot, a final shorter job covering as many whole slots as fit is
// appended. A remainder too short for one slot is dropped without error,
// and a segment shorter than one job yields an empty list. Callers that need
// full coverage must compare the result with seg themselves.
func Split(seg segments.Segment, c Capacity) (segments.List, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	res := segments.List{}
	if seg.IsEmpty() {
		return res, nil
	}

	jobLength := c.JobLength()
	stride := c.JobStride()
	overlap := c.SlotOverlap()

	t := seg.Start
	for t+jobLength <= seg.End {
		res = append(res, segments.New(t, t+jobLength).Intersect(seg))
		t += stride
	}

	// Nothing fit: the whole segment is shorter than one job.
	if len(res) == 0 {
		return res, nil
	}

	extra := math.Floor((seg.End - t - 2*c.EdgeLoss - overlap) / (c.UnitLength - overlap))
	if extra >= 1 {
		res = append(res, segments.New(t, t+extra*(c.UnitLength-overlap)+overlap+2*c.EdgeLoss).Intersect(seg))
	}

	return res, nil
}

// SegmentOK reports whether seg is long enough to be analyzed with c.
func SegmentOK(seg segments.Segment, c Capacity) bool {
	list, err := Split(seg, c)

	return err == nil && len(list) > 0
}

// CapacityFromTemplate derives the capacity of the analysis job from its
// static options. The window options are sample counts and are converted to
// seconds with resample-rate.
func CapacityFromTemplate(job *JobTemplate, slotsPerJob int) (Capacity, error) {
	if job == nil {
		return Capacity{}, errors.Wrap(ErrJobNotConfigured, "analysis job")
	}

	get := func(key string) (float64, error) {
		val, ok := job.StaticOption(key)
		if !ok {
			return 0, errors.Wrapf(ErrInvalidCapacity, "missing analysis option %q", key)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidCapacity, "analysis option %q: %q is not a number", key, val)
		}

		return f, nil
	}

	rate, err := get("resample-rate")
	if err != nil {
		return Capacity{}, err
	}
	if rate <= 0 {
		return Capacity{}, errors.Wrapf(ErrInvalidCapacity, "resample-rate must be positive, got %g", rate)
	}

	var samples [4]float64
	for i, key := range []string{"psd-average-points", "window-length", "window-shift", "filter-corruption"} {
		samples[i], err = get(key)
		if err != nil {
			return Capacity{}, err
		}
	}

	c := Capacity{
		UnitLength:   samples[0] / rate,
		WindowLength: samples[1] / rate,
		WindowShift:  samples[2] / rate,
		EdgeLoss:     samples[3] / rate,
		SlotsPerJob:  slotsPerJob,
	}

	return c, c.Validate()
}
