package scanner

import (
	"errors"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode indica que o quadro não contém QR legível. Não é uma falha: é o caso comum.
var ErrNoCode = errors.New("nenhum QR code encontrado no quadro")

// Decoder extrai o payload de um quadro.
type Decoder interface {
	Decode(frame image.Image) (string, error)
}

// QRDecoder decodifica QR codes com o gozxing. Seguro para uso concorrente.
type QRDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder cria o decodificador com TRY_HARDER habilitado.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode devolve o texto do QR ou ErrNoCode. Pânicos do decodificador viram ErrNoCode.
func (d *QRDecoder) Decode(frame image.Image) (payload string, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = "", ErrNoCode
		}
	}()

	if frame == nil || frame.Bounds().Empty() {
		return "", ErrNoCode
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return "", ErrNoCode
	}

	result, err := zxqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil || result.GetText() == "" {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}
