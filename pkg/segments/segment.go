package segments

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

var ErrEmptyList = errors.New("segment list is empty")

// Segment is the half-open interval [Start, End).
type Segment struct {
	Start float64
	End   float64
}

// New creates a segment.
func New(start, end float64) Segment {
	return Segment{Start: start, End: end}
}

// Duration returns End - Start, or 0 for an empty or inverted segment.
func (s Segment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}

	return s.End - s.Start
}

// IsEmpty reports whether the segment covers no time.
func (s Segment) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether other lies entirely within s.
func (s Segment) Contains(other Segment) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Intersect returns the overlap of s and other. The result is empty when they
// do not overlap.
func (s Segment) Intersect(other Segment) Segment {
	res := Segment{
		Start: math.Max(s.Start, other.Start),
		End:   math.Min(s.End, other.End),
	}
	if res.End < res.Start {
		res.End = res.Start
	}

	return res
}

// Intersects reports whether s and other share any time.
func (s Segment) Intersects(other Segment) bool {
	return !s.Intersect(other).IsEmpty()
}

// Protract returns s widened by before at the start and after at the end.
func (s Segment) Protract(before, after float64) Segment {
	return Segment{Start: s.Start - before, End: s.End + after}
}

// IntStart is the start truncated to whole seconds, as used in file names.
func (s Segment) IntStart() int64 {
	return int64(s.Start)
}

// IntDuration is the duration truncated to whole seconds, as used in file names.
func (s Segment) IntDuration() int64 {
	return int64(s.Duration())
}

func (s Segment) String() string {
	return fmt.Sprintf("[%s ... %s)", FormatTime(s.Start), FormatTime(s.End))
}

// FormatTime prints t without a trailing fractional part when it is integral.
func FormatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// List is an ordered sequence of segments.
type List []Segment

// Extent returns the segment spanning the earliest start to the latest end.
func (l List) Extent() (Segment, error) {
	if len(l) == 0 {
		return Segment{}, ErrEmptyList
	}

	ext := l[0]
	for _, seg := range l[1:] {
		ext.Start = math.Min(ext.Start, seg.Start)
		ext.End = math.Max(ext.End, seg.End)
	}

	return ext, nil
}

// Duration returns the summed duration of all segments. Overlaps are counted
// once per segment.
func (l List) Duration() float64 {
	var total float64
	for _, seg := range l {
		total += seg.Duration()
	}

	return total
}

// Coalesce returns a sorted copy of l with overlapping and touching segments
// merged and empty segments removed.
func (l List) Coalesce() List {
	sorted := make(List, 0, len(l))
	for _, seg := range l {
		if !seg.IsEmpty() {
			sorted = append(sorted, seg)
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	res := make(List, 0, len(sorted))
	for _, seg := range sorted {
		last := len(res) - 1
		if last >= 0 && seg.Start <= res[last].End {
			res[last].End = math.Max(res[last].End, seg.End)

			continue
		}
		res = append(res, seg)
	}

	return res
}

// IntersectSegment returns the parts of l that fall within seg, dropping
// segments that do not overlap it.
func (l List) IntersectSegment(seg Segment) List {
	res := make(List, 0, len(l))
	for _, s := range l {
		in := s.Intersect(seg)
		if in.IsEmpty() {
			continue
		}
		res = append(res, in)
	}

	return res
}
