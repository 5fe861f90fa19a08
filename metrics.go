package sudo

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the instance collectors. With a nil registerer they are created but
// never registered, so recording is always safe. Instances sharing a registerer and a
// platform share their collectors.
type metrics struct {
	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	prompts     *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, platform TargetOS) *metrics {
	constLabels := prometheus.Labels{"platform": platform.String()}

	return &metrics{
		attempts: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "sudo_elevation_attempts_total",
				Help:        "Total number of elevated executions by operation and outcome",
				ConstLabels: constLabels,
			},
			[]string{"op", "outcome"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "sudo_elevation_duration_seconds",
				Help:        "Duration of elevated executions in seconds",
				ConstLabels: constLabels,
				Buckets:     []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"op"},
		)),
		prompts: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "sudo_password_prompts_total",
				Help:        "Total number of password prompt cycles by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		)),
		resolutions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "sudo_binary_resolutions_total",
				Help:        "Total number of elevation binary lookups by result",
				ConstLabels: constLabels,
			},
			[]string{"binary"},
		)),
	}
}

// register adds c to reg, returning the collector already registered under the same
// description if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}

	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}

	return c
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}

	return "success"
}

func (m *metrics) recordAttempt(op string, start time.Time, err error) {
	m.attempts.With(prometheus.Labels{"op": op, "outcome": outcome(err)}).Inc()
	m.duration.With(prometheus.Labels{"op": op}).Observe(time.Since(start).Seconds())
}

func (m *metrics) recordPrompt(err error) {
	m.prompts.With(prometheus.Labels{"outcome": outcome(err)}).Inc()
}

func (m *metrics) recordResolution(binary string) {
	if binary == "" {
		binary = "none"
	}

	m.resolutions.With(prometheus.Labels{"binary": binary}).Inc()
}
