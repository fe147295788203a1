// Package segments provides half-open time intervals and ordered lists of them.
//
// A Segment covers [Start, End) in GPS seconds. A List keeps its segments in
// the order they were appended; Coalesce sorts and merges it into a list of
// disjoint segments.
package segments
