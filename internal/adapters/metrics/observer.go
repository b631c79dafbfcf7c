// Package metrics exports ledger and vetting activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every exported metric.
const namespace = "vettrack"

// Observer implements app.Observer over a private Prometheus registry.
type Observer struct {
	registry     *prometheus.Registry
	reportMarks  *prometheus.CounterVec
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	votable      *prometheus.GaugeVec
	completion   *prometheus.GaugeVec
	problems     *prometheus.GaugeVec
}

var _ app.Observer = (*Observer)(nil)

// NewObserver registers the vettrack collectors on a fresh registry.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		reportMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_marks_total",
			Help:      "Report mark-complete requests by kind and whether they replaced the stored record.",
		}, []string{"kind", "applied"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vetting_passes_total",
			Help:      "Completed vetting passes by locale.",
		}, []string{"locale"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vetting_pass_duration_seconds",
			Help:      "Wall time of vetting passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"locale"}),
		votable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "votable_paths",
			Help:      "Votable paths found by the latest pass for a locale and coverage level.",
		}, []string{"locale", "coverage"}),
		completion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completion_percent",
			Help:      "Completion percentage from the latest pass for a locale and coverage level.",
		}, []string{"locale", "coverage"}),
		problems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "problem_paths",
			Help:      "Problem counts from the latest pass by locale and category.",
		}, []string{"locale", "category"}),
	}
	o.registry.MustRegister(o.reportMarks, o.passes, o.passDuration, o.votable, o.completion, o.problems)
	return o
}

// Registry returns the registry holding the vettrack collectors.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// ReportMarked counts one ledger write.
func (o *Observer) ReportMarked(kind domain.ReportKind, applied bool) {
	o.reportMarks.WithLabelValues(string(kind), strconv.FormatBool(applied)).Inc()
}

// VettingCompleted records one finished pass.
func (o *Observer) VettingCompleted(locale domain.LocaleID, elapsed time.Duration, result app.VettingResult) {
	loc := string(locale)
	coverage := result.Coverage.String()
	o.passes.WithLabelValues(loc).Inc()
	o.passDuration.WithLabelValues(loc).Observe(elapsed.Seconds())
	o.votable.WithLabelValues(loc, coverage).Set(float64(result.VotablePaths))
	o.completion.WithLabelValues(loc, coverage).Set(float64(result.CompletionPercent))
	for _, category := range domain.Categories() {
		o.problems.WithLabelValues(loc, string(category)).Set(float64(result.Completion.CountFor(category)))
	}
}
