package measure

import (
	"sync"

	"github.com/askiada/go-powerdag/pkg/powerdag/model"
)

type DefaultMeasure struct {
	mu    sync.Mutex
	Kinds map[model.NodeKind]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Kinds: make(map[model.NodeKind]Metric),
	}
}

// AddMetric returns the metric of kind, creating it on first use.
func (m *DefaultMeasure) AddMetric(kind model.NodeKind) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.Kinds[kind]; ok {
		return mt
	}
	mt := &DefaultMetric{
		parents: make(map[model.NodeKind]int),
	}
	m.Kinds[kind] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(kind model.NodeKind) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Kinds[kind]
}

func (m *DefaultMeasure) AllMetrics() map[model.NodeKind]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[model.NodeKind]Metric, len(m.Kinds))
	for kind, mt := range m.Kinds {
		res[kind] = mt
	}

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
