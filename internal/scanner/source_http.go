package scanner

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"
)

// HTTPSnapshotSource lê quadros de uma câmera IP que expõe um snapshot JPEG/PNG por HTTP.
// Um goroutine em segundo plano busca um snapshot a cada Interval; Frame só devolve o
// último quadro recebido, sem I/O no tick.
type HTTPSnapshotSource struct {
	URL      string
	Username string
	Password string
	Interval time.Duration
	Client   *http.Client
}

const defaultSnapshotInterval = 100 * time.Millisecond

// Open faz uma requisição de sondagem (401/403 → ErrPermissionDenied; falha de rede ou
// outro status → ErrNoDevice) e inicia a busca periódica.
func (s HTTPSnapshotSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}

	img, err := s.fetch(ctx, client, c)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	st := &snapshotStream{
		ready:  make(chan struct{}),
		cancel: cancel,
	}
	if img != nil {
		st.store(img)
	}

	st.wg.Add(1)
	go st.poll(pollCtx, interval, func(ctx context.Context) (image.Image, error) {
		return s.fetch(ctx, client, c)
	})
	return st, nil
}

func (s HTTPSnapshotSource) fetch(ctx context.Context, client *http.Client, c Constraints) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: URL inválida: %v", ErrNoDevice, err)
	}
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}
	if c.Width > 0 && c.Height > 0 {
		req.Header.Set("X-Preferred-Resolution", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: câmera respondeu %d", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: câmera respondeu %d", ErrNoDevice, resp.StatusCode)
	}

	img, _, err := ReadFrame(resp.Body, maxFrameBytes)
	if err != nil {
		// Resposta sem imagem ou grande demais: o stream existe mas ainda não tem quadro utilizável.
		return nil, nil
	}
	return img, nil
}

type snapshotStream struct {
	mu        sync.Mutex
	latest    image.Image
	ready     chan struct{}
	readyOnce sync.Once
	playing   bool
	closed    bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (s *snapshotStream) store(img image.Image) {
	if img == nil || img.Bounds().Empty() {
		return
	}
	s.mu.Lock()
	s.latest = img
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *snapshotStream) poll(ctx context.Context, interval time.Duration, fetch func(context.Context) (image.Image, error)) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		img, err := fetch(ctx)
		if err != nil {
			// Falhas transitórias mantêm o último quadro.
			continue
		}
		s.store(img)
	}
}

func (s *snapshotStream) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *snapshotStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.playing = true
	return nil
}

func (s *snapshotStream) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.closed {
		return nil
	}
	return s.latest
}

func (s *snapshotStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.latest = nil
		s.mu.Unlock()
		s.cancel()
		s.wg.Wait()
	})
	return nil
}
