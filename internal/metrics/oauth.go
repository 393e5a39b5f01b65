package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del proxy OAuth. Package propio para evitar ciclos
// de import entre token/proxy y las capas HTTP.

var (
	ExchangeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oauth_exchange_latency_ms",
		Help:    "Latencia de los exchanges contra token endpoints en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"provider", "grant"})

	ExchangeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_exchange_errors_total",
		Help: "Exchanges fallidos contra token endpoints",
	}, []string{"provider", "grant"})

	TokensRefreshed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_tokens_refreshed_total",
		Help: "Access tokens renovados vía refresh token",
	}, []string{"provider"})

	TokensBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_tokens_built_total",
		Help: "Resoluciones de access token, por resultado (fresh/refreshed/exchanged/failed)",
	}, []string{"provider", "outcome"})

	StatesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_states_issued_total",
		Help: "States anti-CSRF emitidos",
	}, []string{"provider", "codec"})

	StatesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_states_rejected_total",
		Help: "States rechazados en el callback, por motivo",
	}, []string{"provider", "reason"})
)

// RegisterOAuth registra las métricas del proxy en el registry dado
// (o el default si es nil). Idempotente.
func RegisterOAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		ExchangeLatency,
		ExchangeErrors,
		TokensRefreshed,
		TokensBuilt,
		StatesIssued,
		StatesRejected,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
