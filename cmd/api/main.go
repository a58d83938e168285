package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lending-recon/internal/config"
	"lending-recon/internal/handler"
	"lending-recon/internal/middleware"
	"lending-recon/internal/repository"
	"lending-recon/internal/service"
	"lending-recon/pkg/logger"
)

// @title Lending Reconciliation API
// @version 1.0
// @description API for reconciling bank statement entries against loan, investor and expense records
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@lending-recon.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel)
	logger.GetLogger().Info("Starting Lending Reconciliation Service")

	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.GetLogger().Info("Database connection established")

	entryRepo := repository.NewBankEntryRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	investorRepo := repository.NewInvestorRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	patternRepo := repository.NewPatternRepository(db)

	loader := service.NewSnapshotLoader(loanRepo, investorRepo, expenseRepo, patternRepo, linkRepo)

	entryService := service.NewEntryService(entryRepo)
	suggestionService := service.NewSuggestionService(entryRepo, loader, cfg.Engine.GroupWindowDays)
	reconService := service.NewReconciliationService(db, nil)
	bulkService := service.NewBulkAcceptService(suggestionService, reconService, cfg.Engine.BulkMinPercent)

	entryHandler := handler.NewEntryHandler(entryService)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService)
	reconHandler := handler.NewReconciliationHandler(reconService)
	bulkHandler := handler.NewBulkAcceptHandler(bulkService)

	router := setupRouter(entryHandler, suggestionHandler, reconHandler, bulkHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func setupRouter(
	entryHandler *handler.EntryHandler,
	suggestionHandler *handler.SuggestionHandler,
	reconHandler *handler.ReconciliationHandler,
	bulkHandler *handler.BulkAcceptHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		entries := v1.Group("/entries")
		{
			entries.POST("", entryHandler.Import)
			entries.GET("", entryHandler.List)
			entries.GET("/:entry_id", entryHandler.Get)
		}

		v1.POST("/suggestions", suggestionHandler.Suggest)
		v1.POST("/pots", suggestionHandler.Pots)

		reconcile := v1.Group("/reconcile")
		{
			reconcile.POST("/match", reconHandler.Match)
			reconcile.POST("/match-group", reconHandler.MatchGroup)
			reconcile.POST("/grouped", reconHandler.Grouped)
			reconcile.POST("/create", reconHandler.Create)
			reconcile.POST("/manual", reconHandler.Manual)
			reconcile.POST("/bulk-accept", bulkHandler.Accept)
			reconcile.POST("/:entry_id/unreconcile", reconHandler.Unreconcile)
		}
	}

	return router
}
