package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ComparisonsTotal    *prometheus.CounterVec
	ComparisonDuration  *prometheus.HistogramVec
	ClassificationTotal *prometheus.CounterVec
	HistoryLoadsTotal   *prometheus.CounterVec
	AuthRedirectsTotal  *prometheus.CounterVec
	AuthAttemptsTotal   *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer, deps Dependencies) (*Metrics, error) {
	metrics := &Metrics{
		ComparisonsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodora_comparisons_total",
				Help: "Total number of comparison submissions by outcome",
			},
			[]string{"outcome"},
		),
		ComparisonDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "melodora_comparison_duration_seconds",
				Help:    "Time spent waiting for the comparison backend",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		ClassificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodora_link_classifications_total",
				Help: "Total number of link classifications by link type",
			},
			[]string{"type"},
		),
		HistoryLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodora_history_loads_total",
				Help: "Total number of history loads by outcome",
			},
			[]string{"outcome"},
		),
		AuthRedirectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodora_auth_rejections_total",
				Help: "Total number of anonymous requests to protected routes",
			},
			[]string{"kind"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodora_auth_attempts_total",
				Help: "Total number of sign-in and sign-up attempts by outcome",
			},
			[]string{"action", "outcome"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "melodora_active_sessions",
				Help: "Number of browser sessions holding a comparison controller",
			},
		),
	}

	collectors := []prometheus.Collector{
		metrics.ComparisonsTotal,
		metrics.ComparisonDuration,
		metrics.ClassificationTotal,
		metrics.HistoryLoadsTotal,
		metrics.AuthRedirectsTotal,
		metrics.AuthAttemptsTotal,
		metrics.ActiveSessions,
	}
	if deps.LimiterUsers != nil {
		collectors = append(collectors, intGauge(
			"melodora_submit_limiter_active_users",
			"Number of users currently tracked by the submission rate limiter",
			deps.LimiterUsers))
	}
	if deps.TitleCacheSize != nil {
		collectors = append(collectors, intGauge(
			"melodora_title_cache_entries",
			"Number of resolved track titles held in the title cache",
			deps.TitleCacheSize))
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

func intGauge(name, help string, value func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(value()) },
	)
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordComparison(outcome string, duration time.Duration) {
	s.metrics.ComparisonsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		s.metrics.ComparisonDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

func (s *Server) RecordClassification(linkType string) {
	s.metrics.ClassificationTotal.WithLabelValues(linkType).Inc()
}

// RecordHistoryLoad matches history.Observer.
func (s *Server) RecordHistoryLoad(outcome string) {
	s.metrics.HistoryLoadsTotal.WithLabelValues(outcome).Inc()
}

func (s *Server) RecordAuthRejection(_ string, api bool) {
	kind := "page"
	if api {
		kind = "api"
	}
	s.metrics.AuthRedirectsTotal.WithLabelValues(kind).Inc()
}

func (s *Server) RecordAuthAttempt(action, outcome string) {
	s.metrics.AuthAttemptsTotal.WithLabelValues(action, outcome).Inc()
}

func (s *Server) SetActiveSessions(count int) {
	s.metrics.ActiveSessions.Set(float64(count))
}
