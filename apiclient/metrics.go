package apiclient

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the client side request counters.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Refreshes *prometheus.CounterVec
	Replays   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by another client are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "centavo",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "HTTP exchanges with the API by method and status code.",
			},
			[]string{"method", "code"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "centavo",
				Subsystem: "client",
				Name:      "refresh_total",
				Help:      "Access token refresh attempts triggered by a 401.",
			},
			[]string{"outcome"},
		),
		Replays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "centavo",
				Subsystem: "client",
				Name:      "replays_total",
				Help:      "Requests replayed with a new access token.",
			},
		),
	}
	if reg == nil {
		return m
	}

	m.Requests = registerOrReuse(reg, m.Requests)
	m.Refreshes = registerOrReuse(reg, m.Refreshes)
	m.Replays = registerOrReuse(reg, m.Replays)
	return m
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
