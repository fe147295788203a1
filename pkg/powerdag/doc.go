// Package powerdag builds the DAG of batch jobs of an excess power search.
//
// A segment of data is split into overlapping intervals sized to the capacity of one analysis job. Each interval
// becomes one analysis node, and the outputs of all of them, together with any auxiliary injection or time slide
// outputs, are merged by a single aggregation node into one file covering the whole segment. Cut, clustering,
// injection finding and coincidence stages are then chained onto that merged file.
//
// Nodes are created by a Builder, which holds the job templates of a PipelineContext and appends every node it
// creates to a DAG. The DAG is append-only: a node can only be appended once all of its parents are in it, and
// every file it reads that another node of the DAG writes must come from one of its parents. Output file names are
// computed once, when the node is created, so that downstream builders can wire files without inspecting the
// jobs.
//
// The DAG does not run anything. It is handed to the condor writer, which emits the submit description files.
package powerdag
