package router

import (
	"database/sql"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/handlers"
	"botiquin_backend/internal/metrics"
	"botiquin_backend/internal/middleware"
	"botiquin_backend/internal/repositories"
	"botiquin_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Config carries everything Setup needs to wire the application.
type Config struct {
	// Store is the sheet-shaped backend both the inventory and the audit
	// ledger live in.
	Store backend.RowStore

	// DB is the relational connection for the users table; nil when the
	// memory store driver is active.
	DB *sql.DB

	// AuthRepo is built in main so that bootstrap seeding and request
	// handling share one user store.
	AuthRepo repositories.AuthRepository

	// Enricher is the optional drug-info collaborator; nil disables
	// enrichment.
	Enricher services.DrugInfoProvider

	// WarningWindowDays configures the expiry classifier.
	WarningWindowDays int

	Inventory services.InventoryConfig
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, cfg Config) {
	// Initialize Repositories
	authRepo := cfg.AuthRepo
	if authRepo == nil {
		authRepo = repositories.NewMemoryAuthRepository()
	}
	inventoryRepo := repositories.NewInventoryRepository(cfg.Store)
	auditRepo := repositories.NewAuditRepository(cfg.Store)

	// Initialize Services
	var executor repositories.SQLExecutor
	if cfg.DB != nil {
		executor = cfg.DB
	}
	authService := services.NewAuthService(authRepo, executor)
	classifier := services.NewExpiryClassifier(cfg.WarningWindowDays)
	inventoryService := services.NewInventoryService(
		inventoryRepo, auditRepo, classifier, cfg.Enricher, cfg.Inventory)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	medicineHandler := handlers.NewMedicineHandler(inventoryService)

	engine.GET("/metrics", metrics.Handler())

	apiV1 := engine.Group("/api/v1")

	publicAuthRoutes := apiV1.Group("/auth")
	SetupPublicAuthRoutes(publicAuthRoutes, authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupMedicineRoutes(authenticated, medicineHandler)
		SetupAuditRoutes(authenticated, medicineHandler)
	}
}
