package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions   *prom.CounterVec
	notifications *prom.CounterVec
	sweeps        prom.Counter
	sweepDuration prom.Histogram
	sweepRecords  *prom.CounterVec
	active        prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "days_together",
			Name:      "transitions_total",
			Help:      "Relationship state transitions by operation",
		}, []string{"op"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "days_together",
			Name:      "notifications_total",
			Help:      "Day notifications by delivery result",
		}, []string{"result"}),
		sweeps: prom.NewCounter(prom.CounterOpts{
			Namespace: "days_together",
			Name:      "sweeps_total",
			Help:      "Completed daily sweeps",
		}),
		sweepDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "days_together",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a daily sweep",
			Buckets:   prom.DefBuckets,
		}),
		sweepRecords: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "days_together",
			Name:      "sweep_records_total",
			Help:      "Records visited by daily sweeps by outcome; send_failed overlaps advanced",
		}, []string{"outcome"}),
		active: prom.NewGauge(prom.GaugeOpts{
			Namespace: "days_together",
			Name:      "active_relationships",
			Help:      "Counters currently running",
		}),
	}
	reg.MustRegister(pr.transitions, pr.notifications, pr.sweeps, pr.sweepDuration, pr.sweepRecords, pr.active)
	return pr
}

func (p *PrometheusRecorder) IncTransition(op string) {
	p.transitions.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncNotification(result string) {
	p.notifications.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) ObserveSweep(d time.Duration, advanced, skipped, failed, sendFailed int) {
	p.sweeps.Inc()
	p.sweepDuration.Observe(d.Seconds())
	p.sweepRecords.WithLabelValues("advanced").Add(float64(advanced))
	p.sweepRecords.WithLabelValues("skipped").Add(float64(skipped))
	p.sweepRecords.WithLabelValues("failed").Add(float64(failed))
	p.sweepRecords.WithLabelValues("send_failed").Add(float64(sendFailed))
}

func (p *PrometheusRecorder) SetActive(n int) {
	p.active.Set(float64(n))
}
