// Package telemetry exports run counters as Prometheus metrics. Metrics are
// registered on a private registry and written to a node-exporter textfile;
// nothing is served over the network.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/ranking-sim/sim"
)

const namespace = "ranking_sim"

// Collector updates Prometheus metrics from simulation steps.
// It implements sim.StepObserver.
type Collector struct {
	registry *prometheus.Registry

	impressions    prometheus.Counter
	slots          *prometheus.CounterVec
	clicks         *prometheus.CounterVec
	revenue        *prometheus.CounterVec
	clearingPrices prometheus.Histogram
	ctr            prometheus.Gauge
	ecpm           prometheus.Gauge
	meanNDCG       prometheus.Gauge
}

// NewCollector creates a Collector whose metrics carry the run ID as a constant label.
func NewCollector(runID string) *Collector {
	labels := prometheus.Labels{"run_id": runID}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		impressions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "impressions_total",
			Help: "Impressions processed.", ConstLabels: labels,
		}),
		slots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "slot_impressions_total",
			Help: "Ads shown, by slot position.", ConstLabels: labels,
		}, []string{"position"}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "clicks_total",
			Help: "Simulated clicks, by slot position.", ConstLabels: labels,
		}, []string{"position"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "revenue_total",
			Help: "Realized CPC revenue, by slot position.", ConstLabels: labels,
		}, []string{"position"}),
		clearingPrices: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "clicked_price_cpc",
			Help:        "CPC charged on clicked slots.",
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
			ConstLabels: labels,
		}),
		ctr: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ctr",
			Help: "Final click-through rate.", ConstLabels: labels,
		}),
		ecpm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ecpm",
			Help: "Final revenue per thousand impressions.", ConstLabels: labels,
		}),
		meanNDCG: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mean_ndcg",
			Help: "Final mean NDCG over shown slots.", ConstLabels: labels,
		}),
	}
	c.registry.MustRegister(c.impressions, c.slots, c.clicks, c.revenue, c.clearingPrices, c.ctr, c.ecpm, c.meanNDCG)
	return c
}

// ObserveStep implements sim.StepObserver.
func (c *Collector) ObserveStep(step *sim.SimStepResult) {
	c.impressions.Inc()
	for _, s := range step.Slots {
		pos := strconv.Itoa(s.Position)
		c.slots.WithLabelValues(pos).Inc()
		if s.Clicked {
			c.clicks.WithLabelValues(pos).Inc()
			c.revenue.WithLabelValues(pos).Add(s.Revenue)
			c.clearingPrices.Observe(s.PriceCPC)
		}
	}
}

// SetReport records the finalized run-level ratios.
func (c *Collector) SetReport(r *sim.Report) {
	c.ctr.Set(r.CTR)
	c.ecpm.Set(r.ECPM)
	c.meanNDCG.Set(r.MeanNDCG)
}

// Registry exposes the private registry, e.g. for tests or custom gatherers.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes all metrics in Prometheus text format to path.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
