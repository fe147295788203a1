package powerdag

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/askiada/go-powerdag/pkg/segments"
)

// The functions below are the file naming contract of the wrapped
// executables. They must stay bit-exact: downstream jobs locate their inputs
// by name only.

// AnyInstrument labels artifacts that are not tied to one instrument.
const AnyInstrument = "ANY"

// NodeName is the unique DAG name of a job. Empty parts are skipped.
func NodeName(exe, instrument, tag string, seg segments.Segment) string {
	parts := []string{exe}
	for _, p := range []string{instrument, tag} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, fmt.Sprint(seg.IntStart()), fmt.Sprint(seg.IntDuration()))

	return strings.Join(parts, "-")
}

// TriggerFileName is the output of a single-instrument job:
// <INSTRUMENT>-<KIND>_<TAG>-<START>-<DURATION>.xml, or
// <INSTRUMENT>-<KIND>-<START>-<DURATION>.xml without a tag.
func TriggerFileName(instrument, kind, tag string, seg segments.Segment) string {
	desc := kind
	if tag != "" {
		desc = kind + "_" + tag
	}

	return fmt.Sprintf("%s-%s-%d-%d.xml", instrument, desc, seg.IntStart(), seg.IntDuration())
}

// MultiInstrumentFileName is the output of a job combining several
// instruments: <I1><I2>...-<KIND>-<START>-<DURATION>.xml.
func MultiInstrumentFileName(instruments []string, kind string, seg segments.Segment) string {
	return fmt.Sprintf("%s-%s-%d-%d.xml", strings.Join(instruments, ""), kind, seg.IntStart(), seg.IntDuration())
}

// PowerFileName is the trigger file written by lalapps_power.
func PowerFileName(instrument, tag string, seg segments.Segment) string {
	return TriggerFileName(instrument, "POWER", tag, seg)
}

// InjectionFileName is the injection list written by lalapps_binj. The
// generator always labels its output for the H and L sites together.
func InjectionFileName(tag string, seg segments.Segment) string {
	return TriggerFileName("HL", "INJECTIONS", tag, seg)
}

// AddFileName is the default output of an aggregation job.
func AddFileName(instrument, tag string, seg segments.Segment) string {
	if instrument == "" {
		instrument = AnyInstrument
	}

	return fmt.Sprintf("%s-%s-%d-%d.xml", instrument, tag, seg.IntStart(), seg.IntDuration())
}

// AddCacheName is the manifest read by an aggregation job.
func AddCacheName(cacheDir, instrument, tag string, seg segments.Segment) string {
	if instrument == "" {
		instrument = AnyInstrument
	}

	return filepath.Join(cacheDir, fmt.Sprintf("lladd-%s-%s-%d-%d.cache", instrument, tag, seg.IntStart(), seg.IntDuration()))
}

// FrameCacheName is the frame cache written by a data discovery job for the
// padded span seg.
func FrameCacheName(cacheDir, observatory string, seg segments.Segment) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%s-%d-%d.cache", observatory, seg.IntStart(), int64(seg.End)))
}

// TisiFileName is the time slide table for tag.
func TisiFileName(tag string) string {
	return fmt.Sprintf("tisi_%s.xml", tag)
}
