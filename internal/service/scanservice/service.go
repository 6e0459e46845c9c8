// Package scanservice decodifica quadros enviados por leitores sem decodificação local,
// aplicando a mesma janela de repetição do leitor embarcado, por dispositivo.
package scanservice

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/scanner"
)

// LabelResolver resolve o payload lido quando ele é uma etiqueta do sistema.
type LabelResolver interface {
	Resolve(ctx context.Context, actor domain.Actor, code string) (domain.ResolvedLabel, error)
}

type Service struct {
	decoder scanner.Decoder
	gates   *scanner.Gates
	labels  LabelResolver
	logger  logger.Logger
	now     func() time.Time
}

func NewService(decoder scanner.Decoder, gates *scanner.Gates, labels LabelResolver, logger logger.Logger) *Service {
	return &Service{decoder: decoder, gates: gates, labels: labels, logger: logger, now: time.Now}
}

// Decode lê o QR do quadro. Um quadro sem código devolve NotFound. Repetições dentro da
// janela de espera voltam com Duplicate=true e sem resolução de etiqueta.
func (s *Service) Decode(ctx context.Context, actor domain.Actor, deviceID string, frame image.Image) (domain.ScanResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return domain.ScanResult{}, apperror.NewValidationError("O cabeçalho X-Device-ID é obrigatório.")
	}
	if frame == nil || frame.Bounds().Dx() <= 0 || frame.Bounds().Dy() <= 0 {
		return domain.ScanResult{}, apperror.NewValidationError("Quadro sem dimensões utilizáveis.")
	}

	payload, err := s.decoder.Decode(frame)
	if err != nil {
		if errors.Is(err, scanner.ErrNoCode) {
			return domain.ScanResult{}, apperror.NewNotFoundError("Nenhum QR code encontrado no quadro.")
		}
		return domain.ScanResult{}, apperror.NewInternalError("Falha ao decodificar o quadro.", err)
	}

	// A janela é por dispositivo dentro da empresa.
	key := actor.CompanyID + "/" + deviceID
	result := domain.ScanResult{Payload: payload}
	if !s.gates.Admit(key, payload, s.now()) {
		result.Duplicate = true
		return result, nil
	}

	if strings.HasPrefix(payload, domain.LabelCodePrefix) {
		resolved, err := s.labels.Resolve(ctx, actor, payload)
		switch {
		case err == nil:
			result.Label = &resolved
		case apperror.IsNotFound(err):
			s.logger.Warn("QR com formato de etiqueta não encontrado.", map[string]interface{}{"payload": payload, "device_id": deviceID})
		default:
			return domain.ScanResult{}, err
		}
	}

	s.logger.Debug("Quadro decodificado.", map[string]interface{}{"device_id": deviceID, "payload": payload, "label": result.Label != nil})
	return result, nil
}
