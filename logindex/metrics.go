package logindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments a State. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Entries       prometheus.Counter
	PaddedEntries prometheus.Counter
	MapsCompleted prometheus.Counter
	Collapses     prometheus.Counter
	ResidentNodes prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Entries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logindex",
			Name:      "entries_total",
			Help:      "Index entries advanced past, padding included.",
		}),
		PaddedEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logindex",
			Name:      "padded_entries_total",
			Help:      "Empty entries used to pad out a map.",
		}),
		MapsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logindex",
			Name:      "maps_completed_total",
			Help:      "Filter maps completed and collapsed.",
		}),
		Collapses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logindex",
			Name:      "collapses_total",
			Help:      "Subtree collapse operations.",
		}),
		ResidentNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "logindex",
			Name:      "resident_nodes",
			Help:      "Tree nodes held in memory.",
		}),
	}
}

func (m *Metrics) advanced(count uint64, resident int) {
	if m == nil {
		return
	}
	m.Entries.Add(float64(count))
	m.ResidentNodes.Set(float64(resident))
}

func (m *Metrics) padding(count uint64) {
	if m == nil {
		return
	}
	m.PaddedEntries.Add(float64(count))
}

func (m *Metrics) collapsed() {
	if m == nil {
		return
	}
	m.Collapses.Inc()
}

func (m *Metrics) mapCompleted() {
	if m == nil {
		return
	}
	m.MapsCompleted.Inc()
}
