package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/scanner"
)

// maxFrame limita o upload de um quadro.
const maxFrame = 8 << 20

// DeviceHeader identifica o leitor que enviou o quadro.
const DeviceHeader = "X-Device-ID"

type ScanService interface {
	Decode(ctx context.Context, actor domain.Actor, deviceID string, frame image.Image) (domain.ScanResult, error)
}

type Handler struct {
	Service ScanService
	Logger  logger.Logger
}

func NewHandler(svc ScanService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// DecodeHandler lida com POST /v1/scan/decode.
// @Summary Decodifica o QR de um quadro capturado pelo leitor
// @Description Leituras repetidas do mesmo conteúdo dentro do intervalo de espera voltam com duplicate=true.
// @Tags scan
// @Accept multipart/form-data
// @Produce json
// @Param X-Device-ID header string true "Identificador do leitor"
// @Param frame formData file true "Quadro PNG ou JPEG"
// @Success 200 {object} domain.ScanResult
// @Failure 404 {object} domain.ErrorResponse "Nenhum QR no quadro"
// @Security ApiKeyAuth
// @Router /scan/decode [post]
func (h *Handler) DecodeHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFrame)
	file, _, err := r.FormFile("frame")
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Envie o quadro no campo 'frame'."), http.StatusOK)
		return
	}
	defer file.Close()

	frame, format, err := scanner.ReadFrame(file, maxFrame)
	if errors.Is(err, scanner.ErrFrameTooLarge) {
		msg := fmt.Sprintf("Quadro grande demais: o máximo é %dx%d pixels.", scanner.MaxFrameSide, scanner.MaxFrameSide)
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError(msg), http.StatusOK)
		return
	}
	if err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Quadro inválido: use PNG ou JPEG."), http.StatusOK)
		return
	}
	h.Logger.Debug("Quadro recebido.", map[string]interface{}{"format": format, "device": r.Header.Get(DeviceHeader)})

	result, err := h.Service.Decode(r.Context(), actor, r.Header.Get(DeviceHeader), frame)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}
