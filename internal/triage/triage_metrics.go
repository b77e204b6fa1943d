package triage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/heuristic"
	"github.com/linnemanlabs/warden/internal/plan"
)

// Hooks receives service-level events. Nil fields are skipped.
type Hooks struct {
	OnCache  func(cache string, hit bool)
	OnPlan   func(strategy plan.Strategy, source string)
	OnNotify func(sink, outcome string)
}

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	AssessAttempts  *prometheus.CounterVec
	AssessDuration  *prometheus.HistogramVec
	PlanAttempts    *prometheus.CounterVec
	PlanDuration    *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	PlansTotal      *prometheus.CounterVec
	NotifyTotal     *prometheus.CounterVec
	RecordsScanned  prometheus.Counter
	CandidatesTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_assess_attempts_total",
			Help: "Assessment attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		AssessDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_assess_duration_seconds",
			Help:    "Duration of assessment attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms .. ~65s
		}, []string{"source"}),
		PlanAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_plan_attempts_total",
			Help: "Planning attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		PlanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_plan_duration_seconds",
			Help:    "Duration of planning attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms .. ~65s
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_cache_lookups_total",
			Help: "Assessment and plan cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		PlansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_plans_total",
			Help: "Emitted plans by strategy and producing source.",
		}, []string{"strategy", "source"}),
		NotifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_notifications_total",
			Help: "Plan notifications by sink and outcome.",
		}, []string{"sink", "outcome"}),
		RecordsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_records_scanned_total",
			Help: "Records evaluated by the heuristic scanner.",
		}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_candidates_total",
			Help: "Heuristic matches by heuristic and severity.",
		}, []string{"heuristic", "severity"}),
	}

	reg.MustRegister(
		m.AssessAttempts,
		m.AssessDuration,
		m.PlanAttempts,
		m.PlanDuration,
		m.CacheLookups,
		m.PlansTotal,
		m.NotifyTotal,
		m.RecordsScanned,
		m.CandidatesTotal,
	)

	return m
}

// Hooks returns service Hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnCache: func(cache string, hit bool) {
			result := "miss"
			if hit {
				result = "hit"
			}
			m.CacheLookups.WithLabelValues(cache, result).Inc()
		},
		OnPlan: func(strategy plan.Strategy, source string) {
			m.PlansTotal.WithLabelValues(string(strategy), source).Inc()
		},
		OnNotify: func(sink, outcome string) {
			m.NotifyTotal.WithLabelValues(sink, outcome).Inc()
		},
	}
}

// AssessHooks returns assess.Hooks feeding the assessment metrics.
func (m *Metrics) AssessHooks() assess.Hooks {
	return assess.Hooks{
		OnAttempt: func(source, outcome string, dur time.Duration) {
			m.AssessAttempts.WithLabelValues(source, outcome).Inc()
			m.AssessDuration.WithLabelValues(source).Observe(dur.Seconds())
		},
	}
}

// PlanHooks returns plan.Hooks feeding the planning metrics.
func (m *Metrics) PlanHooks() plan.Hooks {
	return plan.Hooks{
		OnAttempt: func(source, outcome string, dur time.Duration) {
			m.PlanAttempts.WithLabelValues(source, outcome).Inc()
			m.PlanDuration.WithLabelValues(source).Observe(dur.Seconds())
		},
	}
}

// ScanHooks returns heuristic.ScanHooks feeding the scanner metrics.
func (m *Metrics) ScanHooks() heuristic.ScanHooks {
	return heuristic.ScanHooks{
		OnRecord: m.RecordsScanned.Inc,
		OnMatch: func(rule *heuristic.Rule) {
			m.CandidatesTotal.WithLabelValues(rule.Name, rule.Severity).Inc()
		},
	}
}
