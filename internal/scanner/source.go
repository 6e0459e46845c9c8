package scanner

import (
	"context"
	"image"
)

// FacingMode é a câmera preferida (traseira = "environment").
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Constraints são as preferências pedidas à fonte na aquisição.
type Constraints struct {
	FacingMode FacingMode
	Width      int
	Height     int
}

// DefaultConstraints pede a câmera traseira em 1280×720.
var DefaultConstraints = Constraints{FacingMode: FacingEnvironment, Width: 1280, Height: 720}

// Source adquire streams de vídeo. Open deve devolver um erro que envolva
// ErrPermissionDenied ou ErrNoDevice quando for o caso.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream é um stream adquirido. O Controller é o dono exclusivo até Close.
type Stream interface {
	// WaitReady bloqueia até o stream ter um quadro com dimensões utilizáveis.
	WaitReady(ctx context.Context) error
	// Play inicia a reprodução.
	Play() error
	// Frame devolve o quadro mais recente sem fazer I/O; nil quando não há quadro.
	Frame() image.Image
	// Close libera o dispositivo. Idempotente.
	Close() error
}
