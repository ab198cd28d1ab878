package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"botiquin_backend/internal/middleware"
	"botiquin_backend/internal/models"
	"botiquin_backend/internal/services"
	"botiquin_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MedicineHandler holds the inventory service.
type MedicineHandler struct {
	inventoryService services.InventoryService
}

// NewMedicineHandler creates a new MedicineHandler.
func NewMedicineHandler(is services.InventoryService) *MedicineHandler {
	return &MedicineHandler{inventoryService: is}
}

// principal extracts the acting principal set by the auth middleware,
// responding with 401 if it is missing.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing principal in context"))
	}
	return p, ok
}

// respondServiceError maps the inventory service error taxonomy onto the
// standard API error envelope. Every mutation either visibly succeeds or
// visibly fails with a specific reason.
func respondServiceError(c *gin.Context, err error, logContext string) {
	utils.LogError(err, logContext)
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have permission for this action.", err.Error()))
	case errors.Is(err, services.ErrMedicineNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "This medicine was already changed or removed elsewhere.", err.Error()))
	case errors.Is(err, services.ErrBackendUnavailable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeBackendUnavailable, "The inventory backend is unavailable; the change was not applied.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Unexpected error.", "Internal error"))
	}
}

// ListMedicines returns the current inventory snapshot.
func (h *MedicineHandler) ListMedicines(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	records, err := h.inventoryService.ListVisible(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, err, "ListMedicines")
		return
	}
	c.JSON(http.StatusOK, records)
}

// SearchMedicines filters the snapshot by a free-text query.
func (h *MedicineHandler) SearchMedicines(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	records, err := h.inventoryService.Search(c.Request.Context(), p, c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "SearchMedicines")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetAlerts returns expired and soon-to-expire medicines.
func (h *MedicineHandler) GetAlerts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	alerts, err := h.inventoryService.Alerts(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, err, "GetAlerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// CreateMedicine handles creation of a new inventory record.
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req services.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	rec, err := h.inventoryService.Create(c.Request.Context(), p, req)
	if err != nil {
		respondServiceError(c, err, "CreateMedicine")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// WithdrawMedicine takes one unit of the medicine out of the cabinet.
func (h *MedicineHandler) WithdrawMedicine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	rec, err := h.inventoryService.Withdraw(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "WithdrawMedicine")
		return
	}
	c.JSON(http.StatusOK, rec)
}

type adjustRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// AdjustMedicine applies an arbitrary stock delta (admin only).
func (h *MedicineHandler) AdjustMedicine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	rec, err := h.inventoryService.Adjust(c.Request.Context(), p, c.Param("id"), req.Delta)
	if err != nil {
		respondServiceError(c, err, "AdjustMedicine")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteMedicine removes a record (admin only).
func (h *MedicineHandler) DeleteMedicine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.inventoryService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondServiceError(c, err, "DeleteMedicine")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medicine deleted successfully"})
}

// GetRecentAudit returns the most recent audit events.
func (h *MedicineHandler) GetRecentAudit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	events, err := h.inventoryService.RecentAudit(c.Request.Context(), p, limit)
	if err != nil {
		respondServiceError(c, err, "GetRecentAudit")
		return
	}
	c.JSON(http.StatusOK, events)
}

// ClassifyMedicine reports the expiry status of a record passed in the
// body, so the UI can color a row without re-implementing the rules.
func (h *MedicineHandler) ClassifyMedicine(c *gin.Context) {
	if _, ok := principal(c); !ok {
		return
	}
	var rec models.MedicineRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	status := h.inventoryService.Classify(rec, time.Now())
	c.JSON(http.StatusOK, gin.H{"status": status})
}
