package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"leverguard/internal/domain/position"
	"leverguard/internal/domain/risk"
)

// PositionLister is the read side of the position store
type PositionLister interface {
	List(ctx context.Context) []position.Position
}

// AlertCounter reports alert log occupancy
type AlertCounter interface {
	Len() int
	Cap() int
}

// BookCollector reports the live position book on every scrape
type BookCollector struct {
	positions PositionLister
	alerts    AlertCounter

	totalPositions *prometheus.Desc
	bandPositions  *prometheus.Desc
	totalExposure  *prometheus.Desc
	alertLogSize   *prometheus.Desc
	alertLogCap    *prometheus.Desc
}

// NewBookCollector creates a collector over the position store and alert log
func NewBookCollector(positions PositionLister, alerts AlertCounter) *BookCollector {
	return &BookCollector{
		positions: positions,
		alerts:    alerts,

		totalPositions: prometheus.NewDesc(
			"leverguard_positions",
			"Number of monitored positions",
			nil, nil,
		),
		bandPositions: prometheus.NewDesc(
			"leverguard_positions_by_health_band",
			"Monitored positions by health factor band",
			[]string{"band"}, // band: low|medium|high|critical
			nil,
		),
		totalExposure: prometheus.NewDesc(
			"leverguard_book_amount",
			"Summed position amounts",
			[]string{"type"}, // type: collateral|borrowed
			nil,
		),
		alertLogSize: prometheus.NewDesc(
			"leverguard_alert_log_entries",
			"Alerts currently retained in the in-memory log",
			nil, nil,
		),
		alertLogCap: prometheus.NewDesc(
			"leverguard_alert_log_capacity",
			"Alert log capacity",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *BookCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalPositions
	ch <- c.bandPositions
	ch <- c.totalExposure
	ch <- c.alertLogSize
	ch <- c.alertLogCap
}

// Collect implements prometheus.Collector
func (c *BookCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectBook(ctx, ch)
	c.collectAlertLog(ch)
}

func (c *BookCollector) collectBook(ctx context.Context, ch chan<- prometheus.Metric) {
	positions := c.positions.List(ctx)
	stats := risk.ComputeStats(positions, nil, time.Now())

	ch <- prometheus.MustNewConstMetric(
		c.totalPositions,
		prometheus.GaugeValue,
		float64(stats.Overview.TotalPositions),
	)

	bands := map[string]int{
		"low":      stats.RiskDistribution.Low,
		"medium":   stats.RiskDistribution.Medium,
		"high":     stats.RiskDistribution.High,
		"critical": stats.RiskDistribution.Critical,
	}
	for band, n := range bands {
		ch <- prometheus.MustNewConstMetric(c.bandPositions, prometheus.GaugeValue, float64(n), band)
	}

	ch <- prometheus.MustNewConstMetric(
		c.totalExposure,
		prometheus.GaugeValue,
		stats.Overview.TotalCollateral.InexactFloat64(),
		"collateral",
	)
	ch <- prometheus.MustNewConstMetric(
		c.totalExposure,
		prometheus.GaugeValue,
		stats.Overview.TotalBorrowed.InexactFloat64(),
		"borrowed",
	)
}

func (c *BookCollector) collectAlertLog(ch chan<- prometheus.Metric) {
	if c.alerts == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.alertLogSize, prometheus.GaugeValue, float64(c.alerts.Len()))
	ch <- prometheus.MustNewConstMetric(c.alertLogCap, prometheus.GaugeValue, float64(c.alerts.Cap()))
}

// RegisterBookCollector registers the book collector
func RegisterBookCollector(collector *BookCollector) {
	prometheus.MustRegister(collector)
}
