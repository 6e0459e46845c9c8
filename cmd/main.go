package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Infraestrutura e utilitários
	"mouralws/config"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/database"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/pkg/token"
	"mouralws/internal/scanner"

	// Handlers
	"mouralws/internal/api/company"
	"mouralws/internal/api/count"
	"mouralws/internal/api/label"
	"mouralws/internal/api/product"
	"mouralws/internal/api/receiving"
	"mouralws/internal/api/router"
	"mouralws/internal/api/scan"
	"mouralws/internal/api/stock"
	"mouralws/internal/api/user"
	"mouralws/internal/api/warehouse"

	// Acesso a dados
	"mouralws/internal/repository/companyrepo"
	"mouralws/internal/repository/countrepo"
	"mouralws/internal/repository/labelrepo"
	"mouralws/internal/repository/productrepo"
	"mouralws/internal/repository/receivingrepo"
	"mouralws/internal/repository/stockrepo"
	"mouralws/internal/repository/userrepo"
	"mouralws/internal/repository/warehouserepo"

	// Regras de negócio
	"mouralws/internal/service/companyservice"
	"mouralws/internal/service/countservice"
	"mouralws/internal/service/labelservice"
	"mouralws/internal/service/productservice"
	"mouralws/internal/service/receivingservice"
	"mouralws/internal/service/scanservice"
	"mouralws/internal/service/stockservice"
	"mouralws/internal/service/userservice"
	"mouralws/internal/service/warehouseservice"
)

// @title Moura LWS API
// @version 1.0
// @description Etiquetas QR, contagens, recebimentos e leitura de quadros.
// @BasePath /v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	log.Println("⚡ Inicializando serviço Moura LWS...")
	if err := godotenv.Load(); err != nil {
		// as variáveis podem vir do ambiente (ex: Docker)
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment})

	// 1. Infraestrutura
	db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL, database.DefaultPool)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	cacheClient, err := cache.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Warn("Redis indisponível; cache e rate limiter operando em modo degradado.", map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("Conexão Redis estabelecida.", nil)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "mouralws"),
	)

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	limits := pagination.Limits{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax}

	// 2. Repositórios
	companyRepo := companyrepo.NewCompanyRepository(db, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	warehouseRepo := warehouserepo.NewWarehouseRepository(db, cfg.DBTimeout, log)
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTimeout, log)
	stockRepo := stockrepo.NewStockRepository(db, cfg.DBTimeout, log)
	labelRepo := labelrepo.NewLabelRepository(db, cfg.DBTimeout, log)
	countRepo := countrepo.NewCountRepository(db, cfg.DBTimeout, log)
	receivingRepo := receivingrepo.NewReceivingRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// 3. Serviços
	companySvc := companyservice.NewService(companyRepo, log)
	userSvc := userservice.NewService(userRepo, companyRepo, tokenSvc, log)
	warehouseSvc := warehouseservice.NewService(warehouseRepo, companyRepo, log)
	productSvc := productservice.NewService(productRepo, log)
	stockSvc := stockservice.NewService(stockRepo, warehouseRepo, productRepo, log)
	labelSvc := labelservice.NewService(labelRepo, productRepo, cacheClient, cfg.LabelCacheTTL, labelservice.NewMetrics(registry), log)
	countSvc := countservice.NewService(countRepo, warehouseRepo, productRepo, labelSvc, log)
	receivingSvc := receivingservice.NewService(receivingRepo, warehouseRepo, productRepo, labelSvc, log)
	scanSvc := scanservice.NewService(scanner.NewQRDecoder(), scanner.NewGates(cfg.ScanCooldown, 10*time.Minute), labelSvc, log)
	log.Debug("Serviços inicializados.", nil)

	// 4. Handlers e roteador
	handlers := router.Handlers{
		Company:   company.NewHandler(companySvc, log, limits),
		User:      user.NewHandler(userSvc, log),
		Warehouse: warehouse.NewHandler(warehouseSvc, log),
		Product:   product.NewHandler(productSvc, log, limits),
		Stock:     stock.NewHandler(stockSvc, log),
		Label:     label.NewHandler(labelSvc, log, limits),
		Count:     count.NewHandler(countSvc, log, limits),
		Receiving: receiving.NewHandler(receivingSvc, log, limits),
		Scan:      scan.NewHandler(scanSvc, log),
	}
	r := router.NewRouter(handlers, tokenSvc, cacheClient, router.Options{
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitPeriod: cfg.RateLimitPeriod,
		Metrics:         registry,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e graceful shutdown
	go func() {
		log.Info("Servidor Moura LWS ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
