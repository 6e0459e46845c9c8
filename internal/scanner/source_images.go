package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ImageSequenceSource reproduz imagens PNG/JPEG de um diretório como quadros de câmera,
// em ordem alfabética. Usada pela estação de leitura para reprocessar capturas.
type ImageSequenceSource struct {
	Dir  string
	Loop bool
}

// Open carrega e decodifica todas as imagens do diretório.
func (s ImageSequenceSource) Open(ctx context.Context, _ Constraints) (Stream, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: nenhuma imagem em %s", ErrNoDevice, s.Dir)
	}

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := decodeImageFile(filepath.Join(s.Dir, name))
		if err != nil {
			// Arquivo corrompido equivale a um quadro ilegível.
			continue
		}
		frames = append(frames, img)
	}
	return &sequenceStream{frames: frames, loop: s.Loop}, nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := ReadFrame(f, maxFrameBytes)
	return img, err
}

type sequenceStream struct {
	mu      sync.Mutex
	frames  []image.Image
	loop    bool
	next    int
	playing bool
	closed  bool
}

func (s *sequenceStream) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := len(s.frames) > 0 && !s.frames[0].Bounds().Empty()
	s.mu.Unlock()
	if ready {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *sequenceStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.playing = true
	return nil
}

func (s *sequenceStream) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.playing || len(s.frames) == 0 {
		return nil
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return nil
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	return f
}

func (s *sequenceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}
