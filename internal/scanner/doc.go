// Package scanner implementa a leitura contínua de QR codes a partir de uma fonte de
// quadros (câmera IP, sequência de imagens).
//
// O Controller adquire um Stream da Source, amostra um quadro por tick, decodifica com o
// Decoder e entrega o payload ao callback OnRead passando pelo Gate, que descarta leituras
// repetidas do mesmo código dentro da janela de cooldown. Falhas de decodificação de um quadro
// não são erros: a maioria dos quadros não contém código legível e o loop segue em silêncio.
//
// Ciclo de vida: Stopped → Starting → Running → Stopped, com Starting → Stopped em qualquer
// falha de aquisição (CameraAccessError, VideoInitTimeout, PlaybackError).
package scanner
