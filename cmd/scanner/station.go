package main

import (
	"context"
	"sync"
	"time"

	"mouralws/internal/pkg/logger"
)

const (
	queueSize    = 64
	drainTimeout = 10 * time.Second
)

// station repassa as leituras do controlador à API fora do goroutine de captura.
// O forwarder tem contexto próprio: o sinal de encerramento não aborta envios já aceitos.
type station struct {
	client *APIClient
	target Target
	log    logger.Logger

	reads   chan string
	pending sync.WaitGroup

	cancel  context.CancelFunc
	stopped chan struct{}
}

func newStation(client *APIClient, target Target, log logger.Logger) *station {
	return &station{client: client, target: target, log: log, reads: make(chan string, queueSize)}
}

// start inicia o forwarder.
func (s *station) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})
	go func() {
		defer close(s.stopped)
		s.forward(ctx)
	}()
}

func (s *station) onRead(payload string) {
	s.log.Info("Leitura entregue.", map[string]interface{}{"code": payload})
	if s.client == nil || s.target == (Target{}) {
		return
	}

	s.pending.Add(1)
	select {
	case s.reads <- payload:
	default:
		s.pending.Done()
		s.log.Warn("Fila de envio cheia; leitura descartada.", map[string]interface{}{"code": payload})
	}
}

func (s *station) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-s.reads:
			if err := s.client.PostRead(ctx, s.target, payload); err != nil {
				s.log.Error("Falha ao registrar leitura na API.", err)
			} else {
				s.log.Debug("Leitura registrada na API.", map[string]interface{}{"code": payload})
			}
			s.pending.Done()
		}
	}
}

// shutdown espera os envios pendentes, limitado a timeout, e então encerra o forwarder.
// O controlador deve estar parado antes, para que nenhuma leitura nova entre na fila.
func (s *station) shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("Envios pendentes abandonados no encerramento.", map[string]interface{}{"queued": len(s.reads)})
	}

	if s.cancel != nil {
		s.cancel()
		<-s.stopped
	}
}
