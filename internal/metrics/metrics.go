// Package metrics exposes Prometheus collectors for dispatch and reminder
// delivery. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schedd"

type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	bulkSkipped      prometheus.Counter
	delivered        prometheus.Counter
	dropped          prometheus.Counter
	pollFailures     prometheus.Counter
}

// New registers the collectors with reg. Collectors that are already
// registered are reused, so several engines can share one registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatched requests by intent and outcome.",
		}, []string{"intent", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent handling one request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		bulkSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_skipped_total",
			Help:      "Occurrences skipped by bulk inserts because they conflicted.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "delivered_total",
			Help:      "Reminders handed to the delivery channel.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "dropped_total",
			Help:      "Due reminders left for the next poll because the channel was full.",
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "poll_failures_total",
			Help:      "Polls that failed to read or update the store.",
		}),
	}

	var err error
	if m.dispatches, err = register(reg, m.dispatches); err != nil {
		return nil, err
	}
	if m.dispatchDuration, err = register(reg, m.dispatchDuration); err != nil {
		return nil, err
	}
	if m.bulkSkipped, err = register(reg, m.bulkSkipped); err != nil {
		return nil, err
	}
	if m.delivered, err = register(reg, m.delivered); err != nil {
		return nil, err
	}
	if m.dropped, err = register(reg, m.dropped); err != nil {
		return nil, err
	}
	if m.pollFailures, err = register(reg, m.pollFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) ObserveDispatch(intent, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.dispatches.WithLabelValues(intent, outcome).Inc()
	m.dispatchDuration.WithLabelValues(intent).Observe(d.Seconds())
}

func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bulkSkipped.Add(float64(n))
}

// ObservePoll records one reminder poll.
func (m *Metrics) ObservePoll(delivered, dropped int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.pollFailures.Inc()
	}
	m.delivered.Add(float64(delivered))
	m.dropped.Add(float64(dropped))
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
