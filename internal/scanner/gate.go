package scanner

import (
	"sync"
	"time"
)

// Gate aplica a janela de cooldown às leituras: o mesmo payload lido de novo antes de
// lockedUntil é duplicata e estende a janela; qualquer payload diferente é entregue na hora.
// Só o payload imediatamente anterior é lembrado.
//
// Gate não é seguro para uso concorrente; o loop de captura é o único dono.
type Gate struct {
	cooldown    time.Duration
	last        string
	lockedUntil time.Time
}

// NewGate cria um Gate com a janela informada.
func NewGate(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown}
}

// Admit informa se o payload lido em now deve ser entregue.
func (g *Gate) Admit(payload string, now time.Time) bool {
	if payload == g.last && now.Before(g.lockedUntil) {
		g.lockedUntil = now.Add(g.cooldown)
		return false
	}
	g.last = payload
	g.lockedUntil = now.Add(g.cooldown)
	return true
}

// Gates mantém um Gate por dispositivo para o endpoint de decodificação no servidor.
// Dispositivos sem leitura há mais de idleTTL são descartados na próxima chamada.
type Gates struct {
	mu       sync.Mutex
	cooldown time.Duration
	idleTTL  time.Duration
	entries  map[string]*gateEntry
}

type gateEntry struct {
	gate     *Gate
	lastSeen time.Time
}

// NewGates cria o conjunto de gates por dispositivo.
func NewGates(cooldown, idleTTL time.Duration) *Gates {
	return &Gates{
		cooldown: cooldown,
		idleTTL:  idleTTL,
		entries:  make(map[string]*gateEntry),
	}
}

// Admit aplica o Gate do dispositivo ao payload.
func (s *Gates) Admit(deviceID, payload string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict(now)
	e, ok := s.entries[deviceID]
	if !ok {
		e = &gateEntry{gate: NewGate(s.cooldown)}
		s.entries[deviceID] = e
	}
	e.lastSeen = now
	return e.gate.Admit(payload, now)
}

// Len devolve quantos dispositivos estão sendo acompanhados.
func (s *Gates) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Gates) evict(now time.Time) {
	if s.idleTTL <= 0 {
		return
	}
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.idleTTL {
			delete(s.entries, id)
		}
	}
}
