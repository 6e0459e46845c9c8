package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	// Formatos aceitos nos quadros.
	_ "image/jpeg"
	_ "image/png"
)

const (
	// MaxFrameSide é o maior lado aceito para um quadro, em pixels.
	MaxFrameSide = 4096
	// maxFrameBytes limita a leitura de um quadro das fontes locais e HTTP.
	maxFrameBytes = 16 << 20
)

// ErrFrameTooLarge indica um quadro cujo cabeçalho declara dimensões acima de MaxFrameSide.
var ErrFrameTooLarge = errors.New("quadro excede as dimensões máximas")

// ReadFrame lê até limit bytes de r e decodifica a imagem. As dimensões declaradas no
// cabeçalho são conferidas antes de alocar os pixels.
func ReadFrame(r io.Reader, limit int64) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxFrameSide || cfg.Height > MaxFrameSide {
		return nil, "", fmt.Errorf("%w: %dx%d (máximo %dx%d)", ErrFrameTooLarge, cfg.Width, cfg.Height, MaxFrameSide, MaxFrameSide)
	}

	return image.Decode(bytes.NewReader(data))
}
