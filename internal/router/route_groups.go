package router

import (
	"botiquin_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes registers the unauthenticated auth endpoints.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes registers auth endpoints that require a
// valid token.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
}

// SetupMedicineRoutes registers the inventory endpoints. Role gating
// happens inside the service layer so that denial surfaces as an
// explicit authorization error, not a silent 404.
func SetupMedicineRoutes(group *gin.RouterGroup, medicineHandler *handlers.MedicineHandler) {
	medicines := group.Group("/medicines")
	{
		medicines.GET("", medicineHandler.ListMedicines)
		medicines.GET("/search", medicineHandler.SearchMedicines)
		medicines.GET("/alerts", medicineHandler.GetAlerts)
		medicines.POST("", medicineHandler.CreateMedicine)
		medicines.POST("/classify", medicineHandler.ClassifyMedicine)
		medicines.POST("/:id/withdraw", medicineHandler.WithdrawMedicine)
		medicines.POST("/:id/adjust", medicineHandler.AdjustMedicine)
		medicines.DELETE("/:id", medicineHandler.DeleteMedicine)
	}
}

// SetupAuditRoutes registers the audit trail endpoint.
func SetupAuditRoutes(group *gin.RouterGroup, medicineHandler *handlers.MedicineHandler) {
	group.GET("/audit", medicineHandler.GetRecentAudit)
}
