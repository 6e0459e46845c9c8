package scanner

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermissionDenied é usado pelas fontes quando o dispositivo recusa o acesso.
	ErrPermissionDenied = errors.New("permissão de câmera negada")
	// ErrNoDevice é usado pelas fontes quando não há dispositivo disponível.
	ErrNoDevice = errors.New("nenhum dispositivo de câmera disponível")
	// ErrStreamClosed é devolvido por Play em um stream já liberado.
	ErrStreamClosed = errors.New("stream de vídeo encerrado")
	// ErrDisposed é devolvido por Start depois de Dispose.
	ErrDisposed = errors.New("leitor descartado")
)

// CameraAccessError indica permissão negada ou ausência de dispositivo.
type CameraAccessError struct {
	Err error
}

func (e *CameraAccessError) Error() string    { return fmt.Sprintf("acesso à câmera falhou: %v", e.Err) }
func (e *CameraAccessError) Unwrap() error    { return e.Err }
func (e *CameraAccessError) Category() string { return "CAMERA_ACCESS_ERROR" }

// VideoInitTimeout indica que o stream foi concedido mas nunca ficou pronto.
type VideoInitTimeout struct {
	Timeout time.Duration
	Err     error
}

func (e *VideoInitTimeout) Error() string {
	return fmt.Sprintf("vídeo não ficou pronto em %s: %v", e.Timeout, e.Err)
}
func (e *VideoInitTimeout) Unwrap() error    { return e.Err }
func (e *VideoInitTimeout) Category() string { return "VIDEO_INIT_TIMEOUT" }

// PlaybackError indica que o stream se recusou a reproduzir.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string    { return fmt.Sprintf("falha ao reproduzir o vídeo: %v", e.Err) }
func (e *PlaybackError) Unwrap() error    { return e.Err }
func (e *PlaybackError) Category() string { return "PLAYBACK_ERROR" }

// Message traduz um erro de Start na mensagem exibida ao operador.
func Message(err error) string {
	var (
		access   *CameraAccessError
		timeout  *VideoInitTimeout
		playback *PlaybackError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &access):
		if errors.Is(err, ErrPermissionDenied) {
			return "Permissão da câmera negada. Libere o acesso e tente novamente."
		}
		return "Não foi possível acessar a câmera. Verifique se há um dispositivo disponível."
	case errors.As(err, &timeout):
		return "A câmera não respondeu a tempo. Tente iniciar a leitura novamente."
	case errors.As(err, &playback):
		return "Não foi possível reproduzir o vídeo da câmera."
	case errors.Is(err, ErrDisposed):
		return "O leitor foi encerrado."
	default:
		return "Erro ao iniciar a leitura: " + err.Error()
	}
}
