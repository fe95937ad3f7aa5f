package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TierSample is the state of one snapshot tier at collection time.
type TierSample struct {
	Tier      string
	Present   bool
	Corrupted bool
	CreatedAt time.Time
}

// TierSource returns the current snapshot tiers.
type TierSource func() []TierSample

// SnapshotCollector reports snapshot tier state each time metrics are
// gathered.
type SnapshotCollector struct {
	source TierSource
	now    func() time.Time

	present   *prometheus.Desc
	corrupted *prometheus.Desc
	age       *prometheus.Desc
}

// NewSnapshotCollector creates a collector over source.
func NewSnapshotCollector(source TierSource) *SnapshotCollector {
	return &SnapshotCollector{
		source: source,
		now:    time.Now,
		present: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshot", "present"),
			"Whether an unconsumed snapshot exists for the tier.",
			[]string{"tier"}, nil),
		corrupted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshot", "corrupted"),
			"Whether the tier's snapshot file cannot be decoded.",
			[]string{"tier"}, nil),
		age: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "snapshot", "age_seconds"),
			"Age of the tier's snapshot.",
			[]string{"tier"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.present
	ch <- c.corrupted
	ch <- c.age
}

// Collect implements prometheus.Collector.
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.present, prometheus.GaugeValue, boolValue(s.Present), s.Tier)
		ch <- prometheus.MustNewConstMetric(c.corrupted, prometheus.GaugeValue, boolValue(s.Corrupted), s.Tier)
		if s.Present && !s.CreatedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.age, prometheus.GaugeValue, c.now().Sub(s.CreatedAt).Seconds(), s.Tier)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
