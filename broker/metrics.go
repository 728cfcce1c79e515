package broker

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the runtime's counters to Prometheus. A nil *Metrics
// records nothing.
type Metrics struct {
	dispatchedTotal *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	repliesTotal    *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	collectedTotal  *prometheus.CounterVec
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litter",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newHistogramVec(name, help string, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litter",
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		},
		labels,
	)
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by another App on the same registry are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatchedTotal: newCounterVec("messages_dispatched_total", "Handler invocations submitted to the worker pool.", []string{"pattern"}),
		decodeFailures:  newCounterVec("decode_failures_total", "Inbound messages dropped because they could not be decoded.", []string{"pattern"}),
		handlerDuration: newHistogramVec("handler_duration_seconds", "Handler execution time.", []string{"pattern", "outcome"}),
		repliesTotal:    newCounterVec("replies_total", "Replies pushed to reply addresses.", []string{"outcome"}),
		requestsTotal:   newCounterVec("requests_total", "Requests issued by outcome.", []string{"channel", "outcome"}),
		requestDuration: newHistogramVec("request_duration_seconds", "Time from publish to reply or timeout.", []string{"channel"}),
		collectedTotal:  newCounterVec("fanout_replies_total", "Replies collected by fan-out requests.", []string{"channel"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.dispatchedTotal, err = register(reg, m.dispatchedTotal); err != nil {
		return nil, err
	}
	if m.decodeFailures, err = register(reg, m.decodeFailures); err != nil {
		return nil, err
	}
	if m.handlerDuration, err = register(reg, m.handlerDuration); err != nil {
		return nil, err
	}
	if m.repliesTotal, err = register(reg, m.repliesTotal); err != nil {
		return nil, err
	}
	if m.requestsTotal, err = register(reg, m.requestsTotal); err != nil {
		return nil, err
	}
	if m.requestDuration, err = register(reg, m.requestDuration); err != nil {
		return nil, err
	}
	if m.collectedTotal, err = register(reg, m.collectedTotal); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}

func (m *Metrics) dispatched(pattern string) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(pattern).Inc()
}

func (m *Metrics) decodeFailed(pattern string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(pattern).Inc()
}

func (m *Metrics) handled(pattern string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(pattern, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) replied(failed bool) {
	if m == nil {
		return
	}
	label := "success"
	if failed {
		label = "exception"
	}
	m.repliesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) requested(channel string, err error, d time.Duration) {
	if m == nil {
		return
	}
	label := "success"
	var remote *RemoteError
	switch {
	case err == nil:
	case errors.Is(err, ErrTimeout):
		label = "timeout"
	case errors.As(err, &remote):
		label = "remote_error"
	default:
		label = "error"
	}
	m.requestsTotal.WithLabelValues(channel, label).Inc()
	m.requestDuration.WithLabelValues(channel).Observe(d.Seconds())
}

func (m *Metrics) collected(channel string) {
	if m == nil {
		return
	}
	m.collectedTotal.WithLabelValues(channel).Inc()
}
