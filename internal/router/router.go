package router

import (
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/config"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/handler"
	"github.com/aleks2005vk/cheap-gasoline/internal/infra"
	"github.com/aleks2005vk/cheap-gasoline/internal/middleware"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Infra is what the composition root hands over. Redis, OCR, Uploads and
// Notifier are optional.
type Infra struct {
	Stores   *infra.Stores
	Redis    *redis.Client
	Fuels    *fuelconfig.Table
	OCR      *infra.OCRClient
	Uploads  *infra.LocalUploads
	Notifier service.PriceNotifier
	Audit    service.AuditSink
}

// Services is the business layer shared by the HTTP router, the scheduler
// and the CLI tools.
type Services struct {
	Catalog  service.CatalogService
	Resolver service.ResolverService
	Ledger   service.LedgerService
	OCR      service.OCRService
	Auth     service.AuthService
	Audit    service.AuditService
	SiteInfo service.SiteInfoService
}

// NewServices wires repositories and services.
// Dependency graph: Service ← Repository ← Catalog/Ledger DB, Redis
func NewServices(cfg *config.Config, in Infra) *Services {
	var store cache.Store = cache.Noop{}
	if in.Redis != nil {
		store = cache.NewRedisStore(in.Redis)
	}
	audit := in.Audit
	if audit == nil {
		audit = service.LogAuditSink{}
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	stationRepo := repository.NewStationRepository(in.Stores.Catalog)
	priceRepo := repository.NewPriceRepository(in.Stores.Ledger)
	userRepo := repository.NewUserRepository(in.Stores.Catalog)
	auditRepo := repository.NewAuditRepository(in.Stores.Catalog)
	siteInfoRepo := repository.NewSiteInfoRepository(in.Stores.Catalog)

	// ── Services ─────────────────────────────────────────────────────────────
	var extractor service.TextExtractor
	if in.OCR != nil {
		extractor = in.OCR
	}
	var uploads service.UploadStore
	if in.Uploads != nil {
		uploads = in.Uploads
	}
	ttl := time.Duration(cfg.StationsCacheTTLSeconds) * time.Second

	return &Services{
		Catalog:  service.NewCatalogService(stationRepo, in.Fuels, store, audit),
		Resolver: service.NewResolverService(stationRepo, priceRepo, store, ttl),
		Ledger:   service.NewLedgerService(priceRepo, stationRepo, store, in.Notifier),
		OCR:      service.NewOCRService(stationRepo, extractor, uploads),
		Auth:     service.NewAuthService(userRepo, cfg, audit),
		Audit:    service.NewAuditService(auditRepo),
		SiteInfo: service.NewSiteInfoService(siteInfoRepo, audit),
	}
}

// New returns a configured Gin engine.
func New(cfg *config.Config, in Infra, svc *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIP())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	var breaker *infra.CircuitBreaker
	if in.OCR != nil {
		breaker = in.OCR.Breaker()
	}
	r.GET("/health", handler.Health(in.Stores, in.Redis, breaker))

	registerRoutes(r, cfg, svc)

	if in.Uploads != nil {
		r.Static("/v1/uploads", in.Uploads.Dir())
	}

	// Swagger UI outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

func registerRoutes(r *gin.Engine, cfg *config.Config, svc *Services) {
	authH := handler.NewAuthHandler(svc.Auth)
	stationsH := handler.NewStationsHandler(svc.Catalog, svc.Resolver)
	pricesH := handler.NewPricesHandler(svc.Ledger, svc.OCR, cfg.MaxUploadMB)
	adminH := handler.NewAdminHandler(svc.Audit)
	siteInfoH := handler.NewSiteInfoHandler(svc.SiteInfo)

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	optionalJWT := middleware.OptionalJWTAuth(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(model.RoleAdmin, model.RoleSuperadmin)

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", middleware.AuthRateLimiter(), authH.Register)
		auth.POST("/login", middleware.AuthRateLimiter(), authH.Login)
		auth.GET("/me", jwtMW, authH.Me)
	}

	// Map reads are public; price submissions accept anonymous users and
	// tag the observation with the user id when a token is present.
	stations := r.Group("/v1/stations")
	{
		stations.GET("", stationsH.List)
		stations.GET("/:id", stationsH.Get)
		stations.GET("/:id/prices/history", pricesH.History)
		stations.POST("/:id/prices", optionalJWT, pricesH.Record)
		stations.POST("/:id/photo", optionalJWT, pricesH.Photo)

		stations.POST("", jwtMW, adminOnly, stationsH.Create)
		stations.POST("/:id/resync", jwtMW, adminOnly, stationsH.Resync)
	}

	r.GET("/v1/site-info", siteInfoH.Get)
	r.PUT("/v1/site-info/:key", jwtMW, adminOnly, siteInfoH.Set)

	admin := r.Group("/v1/admin", jwtMW, adminOnly)
	{
		admin.GET("/audit", adminH.AuditLog)
		admin.POST("/stations/resync", stationsH.ResyncAll)
	}
}
