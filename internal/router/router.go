package router

import (
	"net/http"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/config"
	"github.com/koouhz/beefybeer-sub000/internal/handler"
	"github.com/koouhz/beefybeer-sub000/internal/infra"
	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/middleware"
	"github.com/koouhz/beefybeer-sub000/internal/repository"
	"github.com/koouhz/beefybeer-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the infrastructure pieces the engine is built on. Only Store is
// required; nil optional pieces disable their feature.
type Deps struct {
	Store          *repository.Store
	Redis          *redis.Client
	CacheCB        *infra.Circuito
	Alertador      service.Alertador
	Publicador     service.Publicador
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Reloj          func() time.Time
}

// Services is the wired service layer, shared by the router and the
// background jobs.
type Services struct {
	Productos service.ProductoService
	Stock     service.StockService
	Ventas    service.VentaService
	Mesas     service.MesaService
	Pedidos   service.PedidoService
}

// NewServices builds the service graph:
// Pedidos ← (Stock ← Ledger ← cache), Ventas, Mesas ← repositories.
func NewServices(cfg *config.Config, d Deps) *Services {
	var cache service.CacheStock
	if d.Redis != nil {
		cache = infra.NewStockCache(d.Redis, d.CacheCB, cfg.StockCacheTTL())
	}

	ledger := service.NewLedgerStore(d.Store.Inventario, cache, service.LedgerConfig{
		Reloj:            d.Reloj,
		Zona:             cfg.LedgerLocation(),
		MaxObservaciones: cfg.LedgerMaxObservaciones,
		MaxReintentos:    cfg.LedgerMaxReintentos,
	}, d.Metrics)

	stock := service.NewStockService(ledger, d.Store.Productos, d.Alertador, d.Metrics)
	ventas := service.NewVentaService(d.Store.Ventas, d.Reloj)
	mesas := service.NewMesaService(d.Store.Mesas, d.Store.Pedidos, d.Metrics)
	pedidos := service.NewPedidoService(
		d.Store.Pedidos,
		d.Store.Productos,
		d.Store.Mesas,
		stock,
		ventas,
		mesas,
		d.Publicador,
		d.Alertador,
		d.Metrics,
	)

	return &Services{
		Productos: service.NewProductoService(d.Store.Productos),
		Stock:     stock,
		Ventas:    ventas,
		Mesas:     mesas,
		Pedidos:   pedidos,
	}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← Store/Redis
func New(cfg *config.Config, d Deps, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigenes()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMin, time.Minute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	productosH := handler.NewProductosHandler(svcs.Productos)
	inventarioH := handler.NewInventarioHandler(svcs.Stock)
	pedidosH := handler.NewPedidosHandler(svcs.Pedidos, svcs.Ventas)
	mesasH := handler.NewMesasHandler(svcs.Mesas)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(d.Store.Ping, d.Redis, d.CacheCB))
	if cfg.MetricsEnabled && d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	v1 := r.Group("/v1")
	{
		prods := v1.Group("/productos")
		{
			prods.POST("", productosH.Crear)
			prods.GET("", productosH.Listar)
			prods.GET("/:id", productosH.ObtenerPorID)
		}

		inv := v1.Group("/inventario")
		{
			inv.POST("/disponibilidad", inventarioH.VerificarDisponibilidad)
			inv.POST("/movimientos", inventarioH.RegistrarMovimientos)
			inv.GET("/:producto_id", inventarioH.ObtenerStock)
			inv.POST("/:producto_id/movimientos", inventarioH.RegistrarMovimiento)
			inv.PUT("/:producto_id/umbrales", inventarioH.DefinirUmbrales)
		}

		pedidos := v1.Group("/pedidos")
		{
			pedidos.POST("", pedidosH.Crear)
			pedidos.GET("", pedidosH.Listar)
			pedidos.GET("/:id", pedidosH.Obtener)
			pedidos.DELETE("/:id", pedidosH.Eliminar)
			pedidos.PATCH("/:id/estado", pedidosH.CambiarEstado)
			pedidos.POST("/:id/items", pedidosH.AgregarItem)
			pedidos.DELETE("/:id/items/:item_id", pedidosH.QuitarItem)
			pedidos.GET("/:id/venta", pedidosH.ObtenerVenta)
		}

		mesas := v1.Group("/mesas")
		{
			mesas.POST("", mesasH.Crear)
			mesas.GET("", mesasH.Listar)
			mesas.POST("/reconciliar", mesasH.ReconciliarTodas)
			mesas.PATCH("/:numero/estado", mesasH.CambiarEstado)
			mesas.POST("/:numero/reconciliar", mesasH.Reconciliar)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
