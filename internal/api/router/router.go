package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "mouralws/docs"
	"mouralws/internal/api/company"
	"mouralws/internal/api/count"
	"mouralws/internal/api/label"
	"mouralws/internal/api/product"
	"mouralws/internal/api/receiving"
	"mouralws/internal/api/scan"
	"mouralws/internal/api/stock"
	"mouralws/internal/api/user"
	"mouralws/internal/api/warehouse"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/middleware"
)

// Handlers agrupa os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Company   *company.Handler
	User      *user.Handler
	Warehouse *warehouse.Handler
	Product   *product.Handler
	Stock     *stock.Handler
	Label     *label.Handler
	Count     *count.Handler
	Receiving *receiving.Handler
	Scan      *scan.Handler
}

// Options configura os middlewares globais.
type Options struct {
	RateLimit       int
	RateLimitPeriod time.Duration
	Metrics         prometheus.Gatherer
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, cacheClient cache.Client, opts Options, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	superAdmin := middleware.PermissionMiddleware(domain.RoleSuperAdmin)
	admin := middleware.PermissionMiddleware(domain.RoleAdmin)
	member := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator)

	// chain aplica autenticação e depois o controle de papéis.
	chain := func(perm func(http.HandlerFunc) http.HandlerFunc, fn http.HandlerFunc) http.HandlerFunc {
		return auth(perm(fn))
	}

	// --- Infraestrutura ---
	mux.HandleFunc("GET /ping", PingHandler)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}))
	}
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- Autenticação e usuários ---
	mux.HandleFunc("POST /v1/auth/login", h.User.LoginUserHandler)
	mux.HandleFunc("POST /v1/users", chain(admin, h.User.RegisterUserHandler))

	// --- Empresas (plataforma) ---
	mux.HandleFunc("POST /v1/companies", chain(superAdmin, h.Company.CreateCompanyHandler))
	mux.HandleFunc("GET /v1/companies", chain(superAdmin, h.Company.ListCompaniesHandler))
	mux.HandleFunc("GET /v1/companies/{id}", chain(superAdmin, h.Company.GetCompanyHandler))
	mux.HandleFunc("PUT /v1/companies/{id}/plan", chain(superAdmin, h.Company.ChangePlanHandler))
	mux.HandleFunc("PUT /v1/companies/{id}/active", chain(superAdmin, h.Company.SetActiveHandler))

	// --- Armazéns ---
	mux.HandleFunc("POST /v1/warehouses", chain(admin, h.Warehouse.CreateWarehouseHandler))
	mux.HandleFunc("GET /v1/warehouses", chain(member, h.Warehouse.GetAllWarehousesHandler))
	mux.HandleFunc("GET /v1/warehouses/{id}", chain(member, h.Warehouse.GetWarehouseByIDHandler))
	mux.HandleFunc("PUT /v1/warehouses/{id}", chain(admin, h.Warehouse.UpdateWarehouseHandler))
	mux.HandleFunc("DELETE /v1/warehouses/{id}", chain(admin, h.Warehouse.DeleteWarehouseHandler))

	// --- Catálogo e estoque ---
	mux.HandleFunc("POST /v1/products", chain(admin, h.Product.CreateProductHandler))
	mux.HandleFunc("GET /v1/products", chain(member, h.Product.ListProductsHandler))
	mux.HandleFunc("GET /v1/products/{id}", chain(member, h.Product.GetProductByIDHandler))
	mux.HandleFunc("GET /v1/variants/search", chain(member, h.Product.SearchVariantsHandler))
	mux.HandleFunc("POST /v1/stock/adjust", chain(admin, h.Stock.AdjustStockHandler))
	mux.HandleFunc("GET /v1/stock", chain(member, h.Stock.GetStockHandler))

	// --- Etiquetas ---
	mux.HandleFunc("POST /v1/labels/batches", chain(admin, h.Label.CreateBatchHandler))
	mux.HandleFunc("GET /v1/labels/batches", chain(member, h.Label.ListBatchesHandler))
	mux.HandleFunc("GET /v1/labels/batches/{id}", chain(member, h.Label.GetBatchHandler))
	mux.HandleFunc("GET /v1/labels/batches/{id}/labels", chain(member, h.Label.ListLabelsHandler))
	mux.HandleFunc("GET /v1/labels/batches/{id}/pdf", chain(member, h.Label.BatchPDFHandler))
	mux.HandleFunc("GET /v1/labels/resolve", chain(member, h.Label.ResolveHandler))
	mux.HandleFunc("POST /v1/labels/consume", chain(member, h.Label.ConsumeHandler))

	// --- Contagens ---
	mux.HandleFunc("POST /v1/counts", chain(member, h.Count.OpenHandler))
	mux.HandleFunc("GET /v1/counts", chain(member, h.Count.ListHandler))
	mux.HandleFunc("GET /v1/counts/{id}", chain(member, h.Count.GetHandler))
	mux.HandleFunc("POST /v1/counts/{id}/reads", chain(member, h.Count.ReadHandler))
	mux.HandleFunc("POST /v1/counts/{id}/close", chain(member, h.Count.CloseHandler))
	mux.HandleFunc("GET /v1/counts/{id}/items", chain(member, h.Count.ItemsHandler))
	mux.HandleFunc("GET /v1/counts/{id}/export", chain(member, h.Count.ExportHandler))

	// --- Recebimentos ---
	mux.HandleFunc("POST /v1/receivings", chain(member, h.Receiving.CreateHandler))
	mux.HandleFunc("GET /v1/receivings", chain(member, h.Receiving.ListHandler))
	mux.HandleFunc("GET /v1/receivings/{id}", chain(member, h.Receiving.GetHandler))
	mux.HandleFunc("POST /v1/receivings/{id}/reads", chain(member, h.Receiving.ReadHandler))
	mux.HandleFunc("POST /v1/receivings/{id}/approve", chain(admin, h.Receiving.ApproveHandler))
	mux.HandleFunc("POST /v1/receivings/{id}/reject", chain(admin, h.Receiving.RejectHandler))

	// --- Leitura de QR no servidor ---
	mux.HandleFunc("POST /v1/scan/decode", chain(member, h.Scan.DecodeHandler))

	if cacheClient == nil || opts.RateLimit <= 0 {
		return mux
	}
	return middleware.RateLimiter(cacheClient, opts.RateLimit, opts.RateLimitPeriod, log)(mux)
}

// PingHandler é o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
