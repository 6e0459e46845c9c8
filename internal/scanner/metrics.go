package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics são os contadores Prometheus do leitor. Um *Metrics nil é válido e não registra nada.
type Metrics struct {
	Frames        prometheus.Counter
	DecodeMisses  prometheus.Counter
	Reads         *prometheus.CounterVec
	StartFailures *prometheus.CounterVec
}

// NewMetrics registra os contadores em reg (nil cria contadores não registrados).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "scanner", Name: "frames_total",
			Help: "Quadros com dimensões utilizáveis enviados ao decodificador.",
		}),
		DecodeMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "scanner", Name: "decode_misses_total",
			Help: "Quadros sem QR legível.",
		}),
		Reads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "scanner", Name: "reads_total",
			Help: "Leituras decodificadas por resultado (delivered, duplicate).",
		}, []string{"result"}),
		StartFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lws", Subsystem: "scanner", Name: "start_failures_total",
			Help: "Falhas de aquisição da câmera por categoria.",
		}, []string{"category"}),
	}
}

func (m *Metrics) frame() {
	if m != nil {
		m.Frames.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.DecodeMisses.Inc()
	}
}

func (m *Metrics) read(result string) {
	if m != nil {
		m.Reads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) startFailure(category string) {
	if m != nil {
		m.StartFailures.WithLabelValues(category).Inc()
	}
}
