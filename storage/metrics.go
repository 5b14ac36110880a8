package storage

import (
	"github.com/prometheus/client_golang/prometheus"
)

type StoreMetrics struct {
	samplesAppended prometheus.Counter
	slotsSealed     prometheus.Counter
	slotsSpilled    prometheus.Counter
	spillFailures   prometheus.Counter
	slotLoads       prometheus.Counter
	loadFailures    prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	residentSlots   prometheus.Gauge
	spilledSlots    prometheus.Gauge
	spillDuration   prometheus.Summary

	registerer prometheus.Registerer
	collectors []prometheus.Collector
}

// NewStoreMetrics builds the store collectors and registers them with
// registerer when it is not nil.
func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{registerer: registerer}

	m.samplesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "samples_appended_total",
		Help: "Total number of samples appended.",
	})

	m.slotsSealed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slots_sealed_total",
		Help: "Total number of slots that filled up.",
	})

	m.slotsSpilled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slots_spilled_total",
		Help: "Total number of slots written to the cache directory.",
	})

	m.spillFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_spill_failures_total",
		Help: "Total number of slot spills that failed.",
	})

	m.slotLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_loads_total",
		Help: "Total number of spilled slots read back from the cache directory.",
	})

	m.loadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_load_failures_total",
		Help: "Total number of spilled slot reads that failed.",
	})

	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of spilled slot reads served by the residency cache.",
	})

	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of spilled slot reads that missed the residency cache.",
	})

	m.residentSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resident_slots",
		Help: "Number of slots holding their blocks in memory.",
	})

	m.spilledSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spilled_slots",
		Help: "Number of slots living in the cache directory.",
	})

	m.spillDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name:       "spill_duration_seconds",
		Help:       "Duration of writing one slot to the cache directory.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	m.collectors = []prometheus.Collector{
		m.samplesAppended,
		m.slotsSealed,
		m.slotsSpilled,
		m.spillFailures,
		m.slotLoads,
		m.loadFailures,
		m.cacheHits,
		m.cacheMisses,
		m.residentSlots,
		m.spilledSlots,
		m.spillDuration,
	}

	if registerer != nil {
		registerer.MustRegister(m.collectors...)
	}

	return m
}

func (m *StoreMetrics) unregister() {
	if m.registerer == nil {
		return
	}
	for _, c := range m.collectors {
		m.registerer.Unregister(c)
	}
}
