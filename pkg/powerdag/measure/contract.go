package measure

import "github.com/askiada/go-powerdag/pkg/powerdag/model"

// Measure collects construction statistics, one Metric per job kind.
type Measure interface {
	AddMetric(kind model.NodeKind) Metric
	GetMetric(kind model.NodeKind) Metric
	AllMetrics() map[model.NodeKind]Metric
}

// Metric accumulates the statistics of the nodes of one job kind.
type Metric interface {
	AddNode(covered float64, inputs, outputs int)
	AddParent(kind model.NodeKind)
	Nodes() int
	Covered() float64
	AVGCovered() float64
	Files() (inputs, outputs int)
	Parents() map[model.NodeKind]int
}
