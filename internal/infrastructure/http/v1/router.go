// Package v1 provides HTTP API version 1.
package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	appctx "stocktake/internal/core/context"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/auth"
	"stocktake/internal/domain/catalogs/location"
	"stocktake/internal/domain/catalogs/material"
	"stocktake/internal/domain/ledger"
	"stocktake/internal/domain/opname"
	"stocktake/internal/domain/reports"
	"stocktake/internal/infrastructure/http/v1/handlers"
	"stocktake/internal/infrastructure/http/v1/middleware"
	"stocktake/internal/infrastructure/locks"
	"stocktake/internal/infrastructure/storage/postgres"
	"stocktake/internal/infrastructure/storage/postgres/catalog_repo"
	"stocktake/internal/infrastructure/storage/postgres/draft_repo"
	"stocktake/internal/infrastructure/storage/postgres/ledger_repo"
	"stocktake/internal/infrastructure/storage/postgres/report_repo"
	"stocktake/pkg/logger"
	"stocktake/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *pgxpool.Pool

	// TxManager runs repository queries and transactions.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints.
	AuthService *auth.Service

	// Numerator for code and run number generation.
	Numerator numerator.Generator

	// LockStore marks locations as being counted. Nil disables
	// advisory locking; counting still works.
	LockStore *locks.RedisLocationLocker

	// AdjustmentEpsilon is the reconciliation diff threshold. Zero
	// means the default of one scaled unit.
	AdjustmentEpsilon types.Quantity
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	var lockPinger handlers.Pinger
	if cfg.LockStore != nil {
		lockPinger = cfg.LockStore
	}
	healthHandler := handlers.NewHealthHandler(cfg.Pool, lockPinger)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// Shared repositories and services
	materialRepo := catalog_repo.NewMaterialRepo(cfg.TxManager)
	materialService := material.NewService(materialRepo, cfg.TxManager, cfg.Numerator)

	locationRepo := catalog_repo.NewLocationRepo(cfg.TxManager)
	locationService := location.NewService(locationRepo, cfg.TxManager, cfg.Numerator)

	ledgerRepo := ledger_repo.NewRepo(cfg.TxManager)
	ledgerService := ledger.NewService(ledgerRepo, cfg.TxManager)

	draftRepo, err := draft_repo.NewRepo(cfg.TxManager)
	if err != nil {
		return nil, fmt.Errorf("init draft store: %w", err)
	}

	opnameService := opname.NewService(
		ledgerService,
		draftRepo,
		ledgerService,
		locationService,
		cfg.Numerator,
		cfg.AdjustmentEpsilon,
	)

	var locker opname.LocationLocker
	if cfg.LockStore != nil {
		locker = cfg.LockStore
	}
	sessions := opname.NewManager(opnameService, locker)

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, baseHandler, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		// Catalogs
		catalogs := protected.Group("/catalog")
		RegisterCatalogRoutes(catalogs.Group("/materials"),
			handlers.NewMaterialHandler(baseHandler, materialService))
		RegisterCatalogRoutes(catalogs.Group("/locations"),
			handlers.NewLocationHandler(baseHandler, locationService))

		// Stock ledger
		stockHandler := handlers.NewStockHandler(baseHandler, ledgerService)
		stock := protected.Group("/stock")
		{
			stock.POST("/transactions", stockHandler.PostTransaction)
			stock.GET("/transactions", stockHandler.ListTransactions)
			stock.POST("/transfer", stockHandler.Transfer)
			stock.GET("/balance", stockHandler.GetBalance)
			stock.GET("/locations/:id", stockHandler.GetStockByLocation)
			stock.GET("/materials/:id", stockHandler.GetStockByMaterial)
		}

		// Stock opname workflow
		opnameHandler := handlers.NewOpnameHandler(baseHandler, sessions, opnameService, materialService)
		opnameGroup := protected.Group("/opname")
		{
			opnameGroup.POST("/sheet", opnameHandler.LoadSheet)
			opnameGroup.GET("/sheet", opnameHandler.GetSheet)
			opnameGroup.DELETE("/sheet", opnameHandler.CloseSheet)
			opnameGroup.POST("/sheet/items", opnameHandler.AddManualItem)
			opnameGroup.PUT("/sheet/items/:materialId/count", opnameHandler.SetCount)
			opnameGroup.PUT("/sheet/items/:materialId/breakdown", opnameHandler.ApplyBreakdown)
			opnameGroup.POST("/draft", opnameHandler.SaveDraft)
			opnameGroup.GET("/drafts", opnameHandler.ListDraftHistory)
			opnameGroup.GET("/drafted-locations", opnameHandler.DraftedLocations)
			// Finalize writes adjustments; admin only.
			opnameGroup.POST("/finalize", middleware.RequireRole(appctx.RoleAdmin), opnameHandler.Finalize)
		}

		// Reports
		reportRepo := report_repo.NewReportRepo(cfg.TxManager)
		reportService := reports.NewService(reportRepo)
		reportsHandler := handlers.NewReportsHandler(baseHandler, reportService)
		protected.GET("/reports/stock-balance", reportsHandler.StockBalance)
	}

	return router, nil
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	publicAuth := rg.Group("/auth")

	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}
