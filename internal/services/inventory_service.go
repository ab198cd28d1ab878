package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/metrics"
	"botiquin_backend/internal/models"
	"botiquin_backend/internal/repositories"
	"botiquin_backend/pkg/utils"
)

// --- Custom Service Errors ---
var (
	ErrValidation         = errors.New("medicine data validation error")
	ErrForbidden          = errors.New("role does not permit this action")
	ErrMedicineNotFound   = errors.New("medicine not found, it may have been changed elsewhere")
	ErrBackendUnavailable = errors.New("inventory backend unavailable, change not applied")
)

// --- DTOs ---

// CreateMedicineRequest carries the fields an admin supplies for a new
// cabinet entry.
type CreateMedicineRequest struct {
	Name        string  `json:"name" binding:"required"`
	Stock       int     `json:"stock"`
	ExpiryDate  *string `json:"expiry_date"` // Format YYYY-MM-DD
	Location    string  `json:"location"`
	Description *string `json:"description"`
}

// ClassifiedRecord is a record paired with its expiry status, for the
// alerts view.
type ClassifiedRecord struct {
	models.MedicineRecord
	Status ExpiryStatus `json:"status"`
}

// InventoryConfig tunes presentation-facing behavior.
type InventoryConfig struct {
	// HideOutOfStock drops stock-0 records from ListVisible.
	HideOutOfStock bool
	// Locations is the closed set of storage zones accepted on create.
	// Empty means any location string is accepted.
	Locations []string
}

// --- InventoryService Interface ---

// InventoryService is the mutation engine: the only component allowed to
// change stock, location or existence of a record. Every successful
// structural change is paired with exactly one audit event.
type InventoryService interface {
	ListVisible(ctx context.Context, principal models.Principal) ([]models.MedicineRecord, error)
	Search(ctx context.Context, principal models.Principal, query string) ([]models.MedicineRecord, error)
	Alerts(ctx context.Context, principal models.Principal) ([]ClassifiedRecord, error)
	Withdraw(ctx context.Context, principal models.Principal, id string) (*models.MedicineRecord, error)
	Adjust(ctx context.Context, principal models.Principal, id string, delta int) (*models.MedicineRecord, error)
	Create(ctx context.Context, principal models.Principal, req CreateMedicineRequest) (*models.MedicineRecord, error)
	Delete(ctx context.Context, principal models.Principal, id string) error
	RecentAudit(ctx context.Context, principal models.Principal, n int) ([]models.AuditEvent, error)
	Classify(rec models.MedicineRecord, now time.Time) ExpiryStatus
}

// --- inventoryService Implementation ---

type inventoryService struct {
	invRepo    repositories.InventoryRepository
	auditRepo  repositories.AuditRepository
	policy     AccessPolicy
	classifier ExpiryClassifier
	enricher   DrugInfoProvider // nil when enrichment is disabled
	cfg        InventoryConfig
}

// NewInventoryService creates a new instance of InventoryService.
// enricher may be nil to disable enrichment entirely.
func NewInventoryService(
	invRepo repositories.InventoryRepository,
	auditRepo repositories.AuditRepository,
	classifier ExpiryClassifier,
	enricher DrugInfoProvider,
	cfg InventoryConfig,
) InventoryService {
	return &inventoryService{
		invRepo:    invRepo,
		auditRepo:  auditRepo,
		classifier: classifier,
		enricher:   enricher,
		cfg:        cfg,
	}
}

func (s *inventoryService) authorize(principal models.Principal, action Action) error {
	if !s.policy.Can(principal, action) {
		metrics.MutationsDenied.Inc()
		return fmt.Errorf("%w: %s may not %s", ErrForbidden, principal.Role, action)
	}
	return nil
}

// mapRepoErr translates repository/backend failures into the service
// error taxonomy.
func mapRepoErr(err error, context string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrMedicineNotFound, context)
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, backend.ErrRowNotFound),
		errors.Is(err, repositories.ErrDatabaseError):
		metrics.BackendErrorsTotal.Inc()
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, context, err)
	default:
		return fmt.Errorf("%s: %w", context, err)
	}
}

// appendAudit records the event for a mutation that already durably
// applied. A failing append is a warning, not a failure: durability of
// inventory state takes priority over the audit record.
func (s *inventoryService) appendAudit(ctx context.Context, event models.AuditEvent) {
	if err := s.auditRepo.Append(ctx, event); err != nil {
		utils.LogError(err, "audit append failed after confirmed write")
		return
	}
	metrics.MutationsTotal.WithLabelValues(event.Action).Inc()
}

func (s *inventoryService) ListVisible(ctx context.Context, principal models.Principal) ([]models.MedicineRecord, error) {
	if err := s.authorize(principal, ActionView); err != nil {
		return nil, err
	}
	records := s.invRepo.Load(ctx)
	if s.cfg.HideOutOfStock {
		visible := records[:0]
		for _, rec := range records {
			if rec.Stock > 0 {
				visible = append(visible, rec)
			}
		}
		records = visible
	}
	sortByExpiry(records)
	return records, nil
}

func (s *inventoryService) Search(ctx context.Context, principal models.Principal, query string) ([]models.MedicineRecord, error) {
	records, err := s.ListVisible(ctx, principal)
	if err != nil {
		return nil, err
	}
	return FilterRecords(records, query), nil
}

func (s *inventoryService) Alerts(ctx context.Context, principal models.Principal) ([]ClassifiedRecord, error) {
	if err := s.authorize(principal, ActionView); err != nil {
		return nil, err
	}
	now := time.Now()
	records := s.invRepo.Load(ctx)
	sortByExpiry(records)

	alerts := []ClassifiedRecord{}
	for _, rec := range records {
		status := s.classifier.Classify(rec.ExpiryDate, now)
		if status != ExpiryOK {
			alerts = append(alerts, ClassifiedRecord{MedicineRecord: rec, Status: status})
		}
	}
	return alerts, nil
}

func (s *inventoryService) Withdraw(ctx context.Context, principal models.Principal, id string) (*models.MedicineRecord, error) {
	if err := s.authorize(principal, ActionWithdraw); err != nil {
		return nil, err
	}
	return s.applyStockChange(ctx, principal, id, -1, models.AuditActionWithdraw)
}

func (s *inventoryService) Adjust(ctx context.Context, principal models.Principal, id string, delta int) (*models.MedicineRecord, error) {
	if err := s.authorize(principal, ActionAdjust); err != nil {
		return nil, err
	}
	return s.applyStockChange(ctx, principal, id, delta, models.AuditActionAdjust)
}

// applyStockChange reconciles the record, clamps the new stock at zero,
// writes the cell, and logs the action. A withdrawal on an empty record
// still logs: the attempt to take medicine is the fact worth recording.
func (s *inventoryService) applyStockChange(ctx context.Context, principal models.Principal, id string, delta int, action string) (*models.MedicineRecord, error) {
	rec, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "resolving medicine "+id)
	}

	newStock := rec.Stock + delta
	if newStock < 0 {
		newStock = 0
	}

	if err := s.invRepo.UpdateField(ctx, rec.ID, repositories.FieldStock, strconv.Itoa(newStock)); err != nil {
		return nil, mapRepoErr(err, "writing stock of "+rec.Name)
	}
	// Denormalized convenience field; best effort once the stock write is
	// confirmed.
	if err := s.invRepo.UpdateField(ctx, rec.ID, repositories.FieldLastModifiedBy, principal.Identifier); err != nil {
		utils.LogError(err, "failed to record last_modified_by")
	}

	rec.Stock = newStock
	rec.LastModifiedBy = principal.Identifier
	s.appendAudit(ctx, models.AuditEvent{
		Timestamp:      time.Now(),
		Principal:      principal.Identifier,
		Action:         action,
		RecordName:     rec.Name,
		RecordID:       rec.ID,
		ResultingStock: &newStock,
	})
	return rec, nil
}

func (s *inventoryService) Create(ctx context.Context, principal models.Principal, req CreateMedicineRequest) (*models.MedicineRecord, error) {
	if err := s.authorize(principal, ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	expiry, err := parseRequestExpiry(req.ExpiryDate)
	if err != nil {
		return nil, err
	}
	location := strings.TrimSpace(req.Location)
	if err := s.validateLocation(location); err != nil {
		return nil, err
	}

	rec := &models.MedicineRecord{
		Name:           name,
		Stock:          req.Stock,
		ExpiryDate:     expiry,
		Location:       location,
		LastModifiedBy: principal.Identifier,
	}
	if req.Description != nil {
		rec.Description = strings.TrimSpace(*req.Description)
	}

	s.enrich(ctx, rec)

	if err := s.invRepo.Insert(ctx, rec); err != nil {
		return nil, mapRepoErr(err, "creating medicine "+name)
	}

	stock := rec.Stock
	s.appendAudit(ctx, models.AuditEvent{
		Timestamp:      time.Now(),
		Principal:      principal.Identifier,
		Action:         models.AuditActionCreate,
		RecordName:     rec.Name,
		RecordID:       rec.ID,
		ResultingStock: &stock,
	})
	return rec, nil
}

func (s *inventoryService) Delete(ctx context.Context, principal models.Principal, id string) error {
	if err := s.authorize(principal, ActionDelete); err != nil {
		return err
	}

	rec, err := s.invRepo.Delete(ctx, id)
	if err != nil {
		return mapRepoErr(err, "deleting medicine "+id)
	}

	s.appendAudit(ctx, models.AuditEvent{
		Timestamp:  time.Now(),
		Principal:  principal.Identifier,
		Action:     models.AuditActionDelete,
		RecordName: rec.Name,
		RecordID:   rec.ID,
		// ResultingStock stays nil for deletions
	})
	return nil
}

func (s *inventoryService) RecentAudit(ctx context.Context, principal models.Principal, n int) ([]models.AuditEvent, error) {
	if err := s.authorize(principal, ActionView); err != nil {
		return nil, err
	}
	events, err := s.auditRepo.Recent(ctx, n)
	if err != nil {
		return nil, mapRepoErr(err, "reading audit trail")
	}
	return events, nil
}

func (s *inventoryService) Classify(rec models.MedicineRecord, now time.Time) ExpiryStatus {
	return s.classifier.Classify(rec.ExpiryDate, now)
}

// enrich fills active ingredient/description from the enrichment
// collaborator before the first write. Failures fall back to placeholder
// text and never block the creation.
func (s *inventoryService) enrich(ctx context.Context, rec *models.MedicineRecord) {
	const placeholder = "Sin información"

	if s.enricher != nil {
		info, err := s.enricher.Lookup(ctx, rec.Name)
		if err != nil {
			utils.LogError(err, "drug info lookup failed, using placeholder")
		} else if info != nil {
			rec.ActiveIngredient = info.ActiveIngredient
			if rec.Description == "" {
				rec.Description = info.Description
			}
			return
		}
	}
	if rec.ActiveIngredient == "" {
		rec.ActiveIngredient = placeholder
	}
	if rec.Description == "" {
		rec.Description = placeholder
	}
}

func (s *inventoryService) validateLocation(location string) error {
	if len(s.cfg.Locations) == 0 || location == "" {
		return nil
	}
	for _, allowed := range s.cfg.Locations {
		if strings.EqualFold(allowed, location) {
			return nil
		}
	}
	return fmt.Errorf("%w: location %q is not a configured storage zone (%s)",
		ErrValidation, location, strings.Join(s.cfg.Locations, ", "))
}

func parseRequestExpiry(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(repositories.ExpiryDateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry date, please use YYYY-MM-DD", ErrValidation)
	}
	return &t, nil
}

// sortByExpiry orders soonest-expiring first; records without a parseable
// expiry sink to the end. The sort is stable so store order breaks ties.
func sortByExpiry(records []models.MedicineRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].ExpiryDate, records[j].ExpiryDate
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}
