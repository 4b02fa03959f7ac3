package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CountFunc reports a value sampled at scrape time.
type CountFunc func() (int, error)

// Collector samples gateway state on every scrape.
type Collector struct {
	blocked CountFunc
	tracked CountFunc

	blockedDesc *prometheus.Desc
	trackedDesc *prometheus.Desc
	errorsDesc  *prometheus.Desc
}

// NewCollector creates a collector. Either source may be nil.
func NewCollector(blocked, tracked CountFunc) *Collector {
	return &Collector{
		blocked: blocked,
		tracked: tracked,
		blockedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "defense", "blocked_identities"),
			"Identities currently on the blocklist.", nil, nil),
		trackedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "defense", "tracked_identities"),
			"Identities with an active rate limit window.", nil, nil),
		errorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collector", "errors"),
			"Sources that failed during this scrape.", []string{"source"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blockedDesc
	ch <- c.trackedDesc
	ch <- c.errorsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.sample(ch, c.blocked, c.blockedDesc, "blocked")
	c.sample(ch, c.tracked, c.trackedDesc, "tracked")
}

func (c *Collector) sample(ch chan<- prometheus.Metric, fn CountFunc, desc *prometheus.Desc, source string) {
	if fn == nil {
		return
	}
	n, err := fn()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.errorsDesc, prometheus.GaugeValue, 1, source)
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(n))
}
