package labelservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contam etiquetas geradas e consumidas. Um *Metrics nil não registra nada.
type Metrics struct {
	Generated prometheus.Counter
	Consumed  prometheus.Counter
	Resolves  *prometheus.CounterVec
}

// NewMetrics registra os contadores em reg (nil cria contadores não registrados).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "labels", Name: "generated_total",
			Help: "Etiquetas geradas em lotes.",
		}),
		Consumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "labels", Name: "consumed_total",
			Help: "Etiquetas marcadas como usadas.",
		}),
		Resolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "labels", Name: "resolves_total",
			Help: "Consultas de etiqueta por origem (cache, db).",
		}, []string{"source"}),
	}
}

func (m *Metrics) generated(n int) {
	if m != nil {
		m.Generated.Add(float64(n))
	}
}

func (m *Metrics) consumed() {
	if m != nil {
		m.Consumed.Inc()
	}
}

func (m *Metrics) resolved(source string) {
	if m != nil {
		m.Resolves.WithLabelValues(source).Inc()
	}
}
