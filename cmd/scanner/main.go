// Comando scanner é a estação de leitura sem interface: captura quadros de uma câmera IP
// (snapshot HTTP) ou de um diretório de imagens, decodifica QR e envia cada leitura à API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mouralws/internal/pkg/logger"
	"mouralws/internal/scanner"
)

type options struct {
	source      string
	loop        bool
	mode        string
	cooldown    time.Duration
	api         string
	token       string
	target      Target
	metricsAddr string
	logLevel    string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.source, "source", envOr("LWS_SOURCE", ""), "URL de snapshot da câmera ou diretório de imagens")
	fs.BoolVar(&o.loop, "loop", envOr("LWS_LOOP", "") == "true", "repetir o diretório de imagens")
	fs.StringVar(&o.mode, "mode", envOr("LWS_MODE", "continuous"), "single ou continuous")
	fs.DurationVar(&o.cooldown, "cooldown", durationEnv("LWS_COOLDOWN", scanner.DefaultCooldown), "janela de deduplicação")
	fs.StringVar(&o.api, "api", envOr("LWS_API", ""), "URL base da API Moura LWS")
	fs.StringVar(&o.token, "token", envOr("LWS_TOKEN", ""), "JWT do operador")
	fs.StringVar(&o.target.CountID, "count", envOr("LWS_COUNT", ""), "contagem que recebe as leituras")
	fs.StringVar(&o.target.ReceivingID, "receiving", envOr("LWS_RECEIVING", ""), "recebimento que recebe as leituras")
	fs.StringVar(&o.metricsAddr, "metrics", envOr("LWS_METRICS_ADDR", ""), "endereço para expor /metrics (vazio desativa)")
	fs.StringVar(&o.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "nível de log")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.source == "" {
		return o, errors.New("informe -source (URL ou diretório)")
	}
	if _, err := scanner.ParseMode(o.mode); err != nil {
		return o, err
	}
	if _, err := o.target.path(); err != nil {
		return o, err
	}
	if (o.target != Target{}) && o.api == "" {
		return o, errors.New("-api é obrigatório quando há contagem ou recebimento")
	}
	return o, nil
}

func newSource(o options) scanner.Source {
	if strings.HasPrefix(o.source, "http://") || strings.HasPrefix(o.source, "https://") {
		return scanner.HTTPSnapshotSource{
			URL:      o.source,
			Username: os.Getenv("LWS_CAMERA_USER"),
			Password: os.Getenv("LWS_CAMERA_PASSWORD"),
		}
	}
	return scanner.ImageSequenceSource{Dir: o.source, Loop: o.loop}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Usando apenas o ambiente do sistema.")
	}

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.NewLogger(opts.logLevel)

	if err := run(opts, log); err != nil {
		log.Fatal("Estação de leitura encerrada com erro.", err)
	}
}

func run(o options, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := scanner.NewMetrics(registry)
	if o.metricsAddr != "" {
		srv := &http.Server{Addr: o.metricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Servidor de métricas falhou.", err)
			}
		}()
		defer srv.Close()
	}

	var client *APIClient
	if o.api != "" {
		client = NewAPIClient(o.api, o.token)
	}
	mode, _ := scanner.ParseMode(o.mode)

	station := newStation(client, o.target, log)
	station.start()
	// Executa depois de ctrl.Dispose: com o controlador parado, drena a fila.
	defer station.shutdown(drainTimeout)

	scanOpts := scanner.Options{
		Mode:     mode,
		Cooldown: o.cooldown,
		OnRead:   station.onRead,
		OnLabel: func(payload, label string) {
			log.Info("Etiqueta identificada.", map[string]interface{}{"code": payload, "label": label})
		},
		OnError: func(err error) {
			log.Warn(scanner.Message(err), map[string]interface{}{"error": err.Error()})
		},
		Logger:  log,
		Metrics: metrics,
	}
	if client != nil {
		scanOpts.ResolveLabel = client.ResolveLabel
	}

	ctrl, err := scanner.NewController(newSource(o), scanner.NewQRDecoder(), scanOpts)
	if err != nil {
		return err
	}
	defer ctrl.Dispose()

	if err := ctrl.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("Estação de leitura iniciada.", map[string]interface{}{"source": o.source, "mode": string(mode)})

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Sinal de encerramento recebido.", nil)
			return nil
		case <-ticker.C:
			// modo single: o controlador se para após a primeira leitura
			if ctrl.State() == scanner.StateStopped {
				return nil
			}
		}
	}
}
