package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mouralws/internal/pkg/logger"
)

// Mode define se o loop para após a primeira leitura entregue.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeContinuous Mode = "continuous"
)

// ParseMode interpreta "single"/"continuous" (vazio = continuous).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeContinuous:
		return ModeContinuous, nil
	case ModeSingle:
		return ModeSingle, nil
	}
	return "", fmt.Errorf("modo de leitura desconhecido: %q", s)
}

// State é o estado do ciclo de vida do Controller.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

const (
	DefaultCooldown      = 1000 * time.Millisecond
	DefaultFrameInterval = time.Second / 60
	DefaultReadyTimeout  = 3500 * time.Millisecond
)

// Options configura o Controller. OnRead é obrigatório.
type Options struct {
	Mode          Mode
	Cooldown      time.Duration
	FrameInterval time.Duration
	ReadyTimeout  time.Duration
	Constraints   Constraints

	// OnRead recebe cada leitura entregue, no goroutine do loop.
	OnRead func(payload string)
	// ResolveLabel anota a leitura de forma assíncrona; o resultado chega em OnLabel,
	// inclusive depois de Stop ou do fim do ciclo single. Só Dispose cancela a resolução.
	ResolveLabel func(ctx context.Context, payload string) (string, error)
	OnLabel      func(payload, label string)
	// OnError recebe a falha de aquisição uma única vez por Start.
	OnError func(err error)

	Logger  logger.Logger
	Metrics *Metrics
	Now     func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Mode == "" {
		o.Mode = ModeContinuous
	}
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = DefaultFrameInterval
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.Constraints == (Constraints{}) {
		o.Constraints = DefaultConstraints
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Controller é o leitor contínuo: dono exclusivo do Stream enquanto está em Running.
type Controller struct {
	source  Source
	decoder Decoder
	opts    Options

	mu       sync.Mutex
	state    State
	disposed bool
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}

	inCallback atomic.Bool

	// life vive até Dispose; as resoluções de etiqueta sobrevivem ao fim do ciclo.
	life       context.Context
	cancelLife context.CancelFunc
}

// NewController cria o leitor. source, decoder e opts.OnRead são obrigatórios.
func NewController(source Source, decoder Decoder, opts Options) (*Controller, error) {
	if source == nil || decoder == nil {
		return nil, errors.New("scanner: source e decoder são obrigatórios")
	}
	if opts.OnRead == nil {
		return nil, errors.New("scanner: OnRead é obrigatório")
	}
	opts.applyDefaults()
	life, cancelLife := context.WithCancel(context.Background())
	return &Controller{source: source, decoder: decoder, opts: opts, life: life, cancelLife: cancelLife}, nil
}

// State devolve o estado atual.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start adquire a câmera e inicia o loop. Chamado em Starting/Running é no-op.
// Em falha o Controller volta a Stopped e o erro é repassado a OnError e devolvido.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.state != StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStarting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.opts.Logger.Debug("Solicitando acesso à câmera.", map[string]interface{}{
		"facing_mode": string(c.opts.Constraints.FacingMode),
		"width":       c.opts.Constraints.Width,
		"height":      c.opts.Constraints.Height,
	})

	stream, err := c.source.Open(ctx, c.opts.Constraints)
	if err != nil {
		if ctx.Err() != nil {
			c.abort(gen)
			return ctx.Err()
		}
		return c.fail(gen, &CameraAccessError{Err: err})
	}

	readyCtx, cancelReady := context.WithTimeout(ctx, c.opts.ReadyTimeout)
	err = stream.WaitReady(readyCtx)
	cancelReady()
	if err != nil {
		c.closeStream(stream)
		if ctx.Err() != nil {
			c.abort(gen)
			return ctx.Err()
		}
		return c.fail(gen, &VideoInitTimeout{Timeout: c.opts.ReadyTimeout, Err: err})
	}

	if err := stream.Play(); err != nil {
		c.closeStream(stream)
		return c.fail(gen, &PlaybackError{Err: err})
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	if c.state != StateStarting || c.gen != gen {
		// Stop foi chamado durante a aquisição.
		c.mu.Unlock()
		cancelLoop()
		c.closeStream(stream)
		return nil
	}
	c.state = StateRunning
	c.cancel = cancelLoop
	c.done = done
	c.mu.Unlock()

	c.opts.Logger.Info("Leitor de QR iniciado.", map[string]interface{}{
		"mode":        string(c.opts.Mode),
		"cooldown_ms": c.opts.Cooldown.Milliseconds(),
	})

	go c.run(loopCtx, gen, stream, done)
	return nil
}

// Stop libera o stream, cancela o loop e descarta o estado de deduplicação. Idempotente.
// Ao retornar nenhum OnRead adicional é disparado; chamado de dentro de OnRead, a leitura
// em curso é a última.
func (c *Controller) Stop() {
	c.mu.Lock()
	switch c.state {
	case StateStopped:
		c.mu.Unlock()
		return
	case StateStarting:
		c.state = StateStopped
		c.mu.Unlock()
		return
	}

	cancel, done := c.cancel, c.done
	c.state = StateStopped
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	if !c.inCallback.Load() {
		<-done
	}
	c.opts.Logger.Info("Leitor de QR parado.", nil)
}

// Toggle inverte o estado atual.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.State() == StateStopped {
		return c.Start(ctx)
	}
	c.Stop()
	return nil
}

// Dispose para o leitor, descarta resoluções de etiqueta pendentes e impede novos Start.
// Deve ser chamado no encerramento do host.
func (c *Controller) Dispose() {
	c.Stop()
	c.cancelLife()
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, gen uint64, stream Stream, done chan struct{}) {
	defer close(done)
	defer c.closeStream(stream)

	gate := NewGate(c.opts.Cooldown)
	ticker := time.NewTicker(c.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		payload, ok := c.sample(stream)
		if !ok {
			continue
		}
		if !gate.Admit(payload, c.opts.Now()) {
			c.opts.Metrics.read("duplicate")
			continue
		}
		if ctx.Err() != nil {
			return
		}

		c.deliver(payload)

		if c.opts.Mode == ModeSingle {
			c.finish(gen)
			return
		}
	}
}

// sample decodifica o quadro atual. Quadro vazio ou sem código devolve ok=false.
func (c *Controller) sample(stream Stream) (string, bool) {
	frame := stream.Frame()
	if frame == nil || frame.Bounds().Empty() {
		return "", false
	}
	c.opts.Metrics.frame()

	payload, err := c.decoder.Decode(frame)
	if err != nil || payload == "" {
		c.opts.Metrics.miss()
		return "", false
	}
	return payload, true
}

func (c *Controller) deliver(payload string) {
	c.opts.Metrics.read("delivered")
	c.opts.Logger.Debug("Leitura entregue.", map[string]interface{}{"payload": payload})

	c.inCallback.Store(true)
	func() {
		defer c.inCallback.Store(false)
		c.opts.OnRead(payload)
	}()

	if c.opts.ResolveLabel != nil {
		go c.resolve(c.life, payload)
	}
}

func (c *Controller) resolve(ctx context.Context, payload string) {
	label, err := c.opts.ResolveLabel(ctx, payload)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.opts.Logger.Warn("Falha ao resolver etiqueta lida.", map[string]interface{}{"payload": payload, "error": err.Error()})
		return
	}
	if c.opts.OnLabel != nil {
		c.opts.OnLabel(payload, label)
	}
}

// finish encerra o ciclo após a entrega no modo single.
func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateRunning {
		return
	}
	c.state = StateStopped
	c.cancel()
	c.cancel = nil
	c.done = nil
}

func (c *Controller) fail(gen uint64, err error) error {
	c.abort(gen)

	var categorized interface{ Category() string }
	if errors.As(err, &categorized) {
		c.opts.Metrics.startFailure(categorized.Category())
	}
	c.opts.Logger.Warn("Falha ao iniciar o leitor de QR.", map[string]interface{}{"error": err.Error()})

	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
	return err
}

func (c *Controller) abort(gen uint64) {
	c.mu.Lock()
	if c.gen == gen && c.state == StateStarting {
		c.state = StateStopped
	}
	c.mu.Unlock()
}

func (c *Controller) closeStream(stream Stream) {
	if err := stream.Close(); err != nil {
		c.opts.Logger.Warn("Falha ao liberar o stream da câmera.", map[string]interface{}{"error": err.Error()})
	}
}
