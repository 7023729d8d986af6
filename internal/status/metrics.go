package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"listingbot/internal/notifier"
)

// Metrics implements notifier.Metrics on a private Prometheus registry.
type Metrics struct {
	reg *prometheus.Registry

	messages *prometheus.CounterVec
	listings prometheus.Counter
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

var _ notifier.Metrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingbot_messages_total",
			Help: "Messages posted to Telegram, by result.",
		}, []string{"result"}),
		listings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingbot_listings_generated_total",
			Help: "Placeholder listings generated.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingbot_runs_total",
			Help: "Daily update runs, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "listingbot_run_duration_seconds",
			Help:    "Wall time of a daily update including pauses.",
			Buckets: []float64{1, 5, 10, 15, 20, 30, 60, 120},
		}),
	}
	m.reg.MustRegister(
		m.messages, m.listings, m.runs, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) MessageSent(ok bool) {
	if ok {
		m.messages.WithLabelValues("ok").Inc()
		return
	}
	m.messages.WithLabelValues("failed").Inc()
}

func (m *Metrics) ListingsGenerated(n int) {
	if n > 0 {
		m.listings.Add(float64(n))
	}
}

func (m *Metrics) RunFinished(rep notifier.Report, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(rep.Duration.Seconds())
}
