package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/database"
	"botiquin_backend/internal/metrics"
	"botiquin_backend/internal/repositories"
	"botiquin_backend/internal/router"
	"botiquin_backend/internal/services"
	"botiquin_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize Logger
	utils.InitLogger() // Initialize zerolog

	utils.InitJWT(utils.Getenv("JWT_SECRET", ""))

	ctx := context.Background()

	// Pick the store driver and bring up the sheet backend plus, for the
	// SQL drivers, the relational users table on the same connection.
	driver := strings.ToLower(utils.Getenv("STORE_DRIVER", database.DriverSQLite))
	var store backend.RowStore
	switch driver {
	case database.DriverPostgres:
		dbHost := utils.Getenv("DB_HOST", "localhost")
		dbPort := utils.Getenv("DB_PORT", "5432")
		dbUser := utils.Getenv("DB_USER", "botiquin_user")
		dbPassword := utils.Getenv("DB_PASSWORD", "botiquin_password")
		dbName := utils.Getenv("DB_NAME", "botiquin_db")
		dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")
		database.InitPostgres(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

		pgStore, err := backend.NewPostgresStore(database.GetDB())
		if err != nil {
			log.Fatalf("Failed to initialize postgres store: %v", err)
		}
		if err := ensureSheets(ctx, pgStore.EnsureSheet); err != nil {
			log.Fatalf("Failed to prepare sheets: %v", err)
		}
		store = pgStore
	case database.DriverSQLite:
		database.InitSQLite(utils.Getenv("SQLITE_PATH", "botiquin.db"))

		sqlStore, err := backend.NewSQLiteStore(database.GetDB())
		if err != nil {
			log.Fatalf("Failed to initialize sqlite store: %v", err)
		}
		if err := ensureSheets(ctx, sqlStore.EnsureSheet); err != nil {
			log.Fatalf("Failed to prepare sheets: %v", err)
		}
		store = sqlStore
	case database.DriverMemory:
		memStore := backend.NewMemoryStore()
		memStore.EnsureSheet(backend.SheetInventory, repositories.CanonicalInventoryHeader())
		memStore.EnsureSheet(backend.SheetAudit, repositories.CanonicalAuditHeader())
		store = memStore
	default:
		log.Fatalf("Unknown STORE_DRIVER: %q", driver)
	}
	utils.LogInfo("Store initialized", map[string]interface{}{"driver": driver})

	// Users live next to the sheets; the memory driver keeps them in RAM.
	var authRepo repositories.AuthRepository
	if db := database.GetDB(); db != nil {
		authRepo = repositories.NewAuthRepository(db)
	} else {
		authRepo = repositories.NewMemoryAuthRepository()
	}
	seedAdminUser(authRepo)

	engine := gin.Default()

	// Add GinLogger middleware for request logging
	engine.Use(utils.GinLogger())
	engine.Use(metrics.Middleware())

	// CORS configuration
	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"} // Default origins
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Setup all application routes
	router.Setup(engine, router.Config{
		Store:             store,
		DB:                database.GetDB(),
		AuthRepo:          authRepo,
		Enricher:          buildEnricher(),
		WarningWindowDays: getenvInt("EXPIRY_WARNING_DAYS", services.DefaultWarningWindowDays),
		Inventory: services.InventoryConfig{
			HideOutOfStock: getenvBool("HIDE_OUT_OF_STOCK", false),
			Locations:      getenvList("LOCATIONS"),
		},
	})

	// Server port configuration
	port := utils.Getenv("PORT", "8080") // Default to 8080 if not set
	utils.LogInfo("Server starting", map[string]interface{}{"port": port, "configured_from_env": true})

	if err := engine.Run(":" + port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureSheets creates the inventory and audit sheets with their canonical
// headers when they do not exist yet.
func ensureSheets(ctx context.Context, ensure func(context.Context, string, []string) error) error {
	if err := ensure(ctx, backend.SheetInventory, repositories.CanonicalInventoryHeader()); err != nil {
		return err
	}
	return ensure(ctx, backend.SheetAudit, repositories.CanonicalAuditHeader())
}

// buildEnricher wires the CIMA drug-info client behind a cache, Redis when
// REDIS_ADDR is configured, in-process otherwise. Returns nil when
// enrichment is disabled.
func buildEnricher() services.DrugInfoProvider {
	if !getenvBool("ENRICHMENT_ENABLED", true) {
		return nil
	}
	provider := services.NewCIMAProvider()

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: utils.Getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		})
		return services.NewCachedProvider(provider, services.NewRedisDrugCache(client))
	}
	return services.NewCachedProvider(provider, services.NewMemoryDrugCache())
}

// seedAdminUser registers the bootstrap administrator when ADMIN_USERNAME
// and ADMIN_PASSWORD are configured. An existing username is left alone so
// restarts stay idempotent.
func seedAdminUser(authRepo repositories.AuthRepository) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}

	var executor repositories.SQLExecutor
	if db := database.GetDB(); db != nil {
		executor = db
	}
	authService := services.NewAuthService(authRepo, executor)
	_, err := authService.RegisterUser(services.RegisterUserRequest{
		Username: username,
		Password: password,
		Role:     "admin",
	})
	if err != nil {
		if errors.Is(err, services.ErrUsernameExists) {
			return
		}
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	utils.LogInfo("Admin user seeded", map[string]interface{}{"username": username})
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.LogWarn("Ignoring non-numeric environment value", map[string]interface{}{"key": key, "value": raw})
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		utils.LogWarn("Ignoring non-boolean environment value", map[string]interface{}{"key": key, "value": raw})
		return fallback
	}
	return b
}

func getenvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
