// Package metrics exposes Prometheus counters for license traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "licensor"

type Metrics struct {
	Validations     *prometheus.CounterVec
	Bindings        prometheus.Counter
	LicensesCreated *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg leaves them unregistered, which
// suits tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "License validations by result.",
		}, []string{"result"}),
		Bindings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_bindings_total",
			Help:      "Accounts newly bound to a license.",
		}),
		LicensesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "licenses_created_total",
			Help:      "Admin license creations by result.",
		}, []string{"result"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "License store failures by operation.",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.Validations, m.Bindings, m.LicensesCreated, m.StoreErrors)
	}
	return m
}
