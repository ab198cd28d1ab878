package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"botiquin_backend/internal/backend"
	"botiquin_backend/internal/models"
	"botiquin_backend/internal/repositories"
)

var (
	admin  = models.Principal{Identifier: "ana", Role: models.RoleAdmin}
	member = models.Principal{Identifier: "bruno", Role: models.RoleMember}
	viewer = models.Principal{Identifier: "clara", Role: models.RoleViewer}
)

func newTestService(cfg InventoryConfig, enricher DrugInfoProvider) (InventoryService, *backend.MemoryStore) {
	store := backend.NewMemoryStore()
	store.EnsureSheet(backend.SheetInventory, repositories.CanonicalInventoryHeader())
	store.EnsureSheet(backend.SheetAudit, repositories.CanonicalAuditHeader())

	invRepo := repositories.NewInventoryRepository(store)
	auditRepo := repositories.NewAuditRepository(store)
	svc := NewInventoryService(invRepo, auditRepo, NewExpiryClassifier(60), enricher, cfg)
	return svc, store
}

func mustCreate(t *testing.T, svc InventoryService, req CreateMedicineRequest) *models.MedicineRecord {
	t.Helper()
	rec, err := svc.Create(context.Background(), admin, req)
	if err != nil {
		t.Fatalf("create %q failed: %v", req.Name, err)
	}
	return rec
}

func auditEvents(t *testing.T, svc InventoryService) []models.AuditEvent {
	t.Helper()
	events, err := svc.RecentAudit(context.Background(), admin, 0)
	if err != nil {
		t.Fatalf("reading audit trail failed: %v", err)
	}
	return events
}

func TestCreate_AssignsIDAndAudits(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)

	expiry := "2027-06-30"
	rec := mustCreate(t, svc, CreateMedicineRequest{
		Name:       "  Paracetamol 1g ",
		Stock:      10,
		ExpiryDate: &expiry,
		Location:   "baño",
	})

	if rec.ID == "" {
		t.Error("created record has no id")
	}
	if rec.Name != "Paracetamol 1g" {
		t.Errorf("name = %q, want trimmed", rec.Name)
	}
	if rec.ActiveIngredient != "Sin información" {
		t.Errorf("active ingredient = %q, want placeholder", rec.ActiveIngredient)
	}
	if rec.LastModifiedBy != admin.Identifier {
		t.Errorf("last modified by = %q, want %q", rec.LastModifiedBy, admin.Identifier)
	}

	events := auditEvents(t, svc)
	if len(events) != 1 {
		t.Fatalf("audit has %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Action != models.AuditActionCreate || ev.Principal != admin.Identifier {
		t.Errorf("unexpected audit event %+v", ev)
	}
	if ev.RecordID != rec.ID || ev.RecordName != rec.Name {
		t.Errorf("audit event does not reference the record: %+v", ev)
	}
	if ev.ResultingStock == nil || *ev.ResultingStock != 10 {
		t.Errorf("audit resulting stock = %v, want 10", ev.ResultingStock)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{Locations: []string{"baño", "cocina"}}, nil)
	ctx := context.Background()

	badExpiry := "30/06/2027"
	cases := []struct {
		name string
		req  CreateMedicineRequest
	}{
		{"empty name", CreateMedicineRequest{Name: "   "}},
		{"negative stock", CreateMedicineRequest{Name: "x", Stock: -1}},
		{"bad expiry format", CreateMedicineRequest{Name: "x", ExpiryDate: &badExpiry}},
		{"unknown location", CreateMedicineRequest{Name: "x", Location: "garaje"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, admin, tc.req); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	if records, _ := svc.ListVisible(ctx, admin); len(records) != 0 {
		t.Errorf("rejected creates left %d records behind", len(records))
	}
	if events := auditEvents(t, svc); len(events) != 0 {
		t.Errorf("rejected creates logged %d audit events", len(events))
	}
}

func TestCreate_AcceptsConfiguredLocationCaseInsensitively(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{Locations: []string{"Baño"}}, nil)
	mustCreate(t, svc, CreateMedicineRequest{Name: "x", Location: "baño"})
}

func TestWithdraw_DecrementsAndClampsAtZero(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	ctx := context.Background()

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Ibuprofeno", Stock: 1})

	got, err := svc.Withdraw(ctx, member, rec.ID)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if got.Stock != 0 {
		t.Errorf("stock after withdraw = %d, want 0", got.Stock)
	}

	// Withdrawing from an empty record is a no-op on stock but is still
	// recorded: someone reached for medicine that was not there.
	got, err = svc.Withdraw(ctx, member, rec.ID)
	if err != nil {
		t.Fatalf("withdraw at zero failed: %v", err)
	}
	if got.Stock != 0 {
		t.Errorf("stock after withdraw at zero = %d, want 0", got.Stock)
	}

	events := auditEvents(t, svc)
	withdraws := 0
	for _, ev := range events {
		if ev.Action == models.AuditActionWithdraw {
			withdraws++
			if ev.ResultingStock == nil || *ev.ResultingStock != 0 {
				t.Errorf("withdraw event stock = %v, want 0", ev.ResultingStock)
			}
		}
	}
	if withdraws != 2 {
		t.Errorf("audit has %d withdraw events, want 2", withdraws)
	}
}

func TestAdjust_ClampsNegativeResult(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	ctx := context.Background()

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Omeprazol", Stock: 3})
	got, err := svc.Adjust(ctx, admin, rec.ID, -10)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if got.Stock != 0 {
		t.Errorf("stock after -10 on 3 = %d, want 0", got.Stock)
	}

	got, err = svc.Adjust(ctx, admin, rec.ID, 5)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if got.Stock != 5 {
		t.Errorf("stock after +5 on 0 = %d, want 5", got.Stock)
	}
}

func TestMutations_ForbiddenForNonAdmins(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	ctx := context.Background()

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Amoxicilina", Stock: 4})
	before := len(auditEvents(t, svc))

	for _, p := range []models.Principal{member, viewer} {
		if _, err := svc.Adjust(ctx, p, rec.ID, 1); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s adjust: expected ErrForbidden, got %v", p.Role, err)
		}
		if _, err := svc.Create(ctx, p, CreateMedicineRequest{Name: "y"}); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s create: expected ErrForbidden, got %v", p.Role, err)
		}
		if err := svc.Delete(ctx, p, rec.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s delete: expected ErrForbidden, got %v", p.Role, err)
		}
	}

	records, _ := svc.ListVisible(ctx, admin)
	if len(records) != 1 || records[0].Stock != 4 {
		t.Errorf("denied mutations changed state: %+v", records)
	}
	if after := len(auditEvents(t, svc)); after != before {
		t.Errorf("denied mutations logged %d audit events", after-before)
	}
}

func TestDelete_AuditsWithoutStock(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	ctx := context.Background()

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Aspirina", Stock: 2})
	if err := svc.Delete(ctx, admin, rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	records, _ := svc.ListVisible(ctx, admin)
	if len(records) != 0 {
		t.Errorf("record still visible after delete")
	}

	events := auditEvents(t, svc)
	if len(events) != 2 {
		t.Fatalf("audit has %d events, want 2", len(events))
	}
	// Most recent first.
	ev := events[0]
	if ev.Action != models.AuditActionDelete || ev.RecordName != "Aspirina" || ev.RecordID != rec.ID {
		t.Errorf("unexpected delete event %+v", ev)
	}
	if ev.ResultingStock != nil {
		t.Errorf("delete event carries resulting stock %d", *ev.ResultingStock)
	}
}

func TestWithdraw_UnknownID(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	if _, err := svc.Withdraw(context.Background(), member, "nope"); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("expected ErrMedicineNotFound, got %v", err)
	}
}

func TestLifecycle_CreateWithdrawDelete(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)
	ctx := context.Background()

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Paracetamol", Stock: 10})
	for i := 0; i < 3; i++ {
		if _, err := svc.Withdraw(ctx, member, rec.ID); err != nil {
			t.Fatalf("withdraw %d failed: %v", i+1, err)
		}
	}

	records, _ := svc.ListVisible(ctx, admin)
	if len(records) != 1 || records[0].Stock != 7 {
		t.Fatalf("after 3 withdrawals: %+v, want stock 7", records)
	}

	if err := svc.Delete(ctx, admin, rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	events := auditEvents(t, svc)
	if len(events) != 5 {
		t.Fatalf("audit has %d events, want 5", len(events))
	}
	wantActions := []string{
		models.AuditActionDelete,
		models.AuditActionWithdraw, models.AuditActionWithdraw, models.AuditActionWithdraw,
		models.AuditActionCreate,
	}
	for i, want := range wantActions {
		if events[i].Action != want {
			t.Errorf("events[%d].Action = %s, want %s", i, events[i].Action, want)
		}
	}
}

func TestListVisible_HideOutOfStock(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{HideOutOfStock: true}, nil)
	ctx := context.Background()

	mustCreate(t, svc, CreateMedicineRequest{Name: "vacío", Stock: 0})
	mustCreate(t, svc, CreateMedicineRequest{Name: "lleno", Stock: 3})

	records, err := svc.ListVisible(ctx, viewer)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "lleno" {
		t.Errorf("visible records = %+v, want only the stocked one", records)
	}
}

func TestListVisible_SortsByExpirySoonestFirst(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)

	far := "2030-01-01"
	soon := "2026-09-15"
	mustCreate(t, svc, CreateMedicineRequest{Name: "sin fecha", Stock: 1})
	mustCreate(t, svc, CreateMedicineRequest{Name: "lejana", Stock: 1, ExpiryDate: &far})
	mustCreate(t, svc, CreateMedicineRequest{Name: "próxima", Stock: 1, ExpiryDate: &soon})

	records, err := svc.ListVisible(context.Background(), viewer)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"próxima", "lejana", "sin fecha"}
	for i, name := range want {
		if records[i].Name != name {
			t.Errorf("records[%d] = %s, want %s", i, records[i].Name, name)
		}
	}
}

func TestAlerts_OnlyExpiredAndWarning(t *testing.T) {
	svc, _ := newTestService(InventoryConfig{}, nil)

	past := time.Now().AddDate(0, 0, -1).Format(repositories.ExpiryDateLayout)
	near := time.Now().AddDate(0, 0, 30).Format(repositories.ExpiryDateLayout)
	far := time.Now().AddDate(1, 0, 0).Format(repositories.ExpiryDateLayout)

	mustCreate(t, svc, CreateMedicineRequest{Name: "caducado", Stock: 1, ExpiryDate: &past})
	mustCreate(t, svc, CreateMedicineRequest{Name: "pronto", Stock: 1, ExpiryDate: &near})
	mustCreate(t, svc, CreateMedicineRequest{Name: "lejos", Stock: 1, ExpiryDate: &far})
	mustCreate(t, svc, CreateMedicineRequest{Name: "sin fecha", Stock: 1})

	alerts, err := svc.Alerts(context.Background(), viewer)
	if err != nil {
		t.Fatalf("alerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}
	statuses := map[string]ExpiryStatus{}
	for _, a := range alerts {
		statuses[a.Name] = a.Status
	}
	if statuses["caducado"] != ExpiryExpired {
		t.Errorf("caducado status = %s, want EXPIRED", statuses["caducado"])
	}
	if statuses["pronto"] != ExpiryWarning {
		t.Errorf("pronto status = %s, want WARNING", statuses["pronto"])
	}
}

// stubProvider is a hand-rolled DrugInfoProvider for enrichment tests.
type stubProvider struct {
	info *models.DrugInfo
	err  error
}

func (s *stubProvider) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	return s.info, s.err
}

func TestCreate_UsesEnrichment(t *testing.T) {
	provider := &stubProvider{info: &models.DrugInfo{
		ActiveIngredient: "ibuprofeno",
		Description:      "antiinflamatorio no esteroideo",
	}}
	svc, _ := newTestService(InventoryConfig{}, provider)

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Ibuprofeno 600", Stock: 1})
	if rec.ActiveIngredient != "ibuprofeno" {
		t.Errorf("active ingredient = %q, want enriched value", rec.ActiveIngredient)
	}
	if rec.Description != "antiinflamatorio no esteroideo" {
		t.Errorf("description = %q, want enriched value", rec.Description)
	}
}

func TestCreate_EnrichmentFailureFallsBackToPlaceholder(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("cima timeout")}
	svc, _ := newTestService(InventoryConfig{}, provider)

	rec := mustCreate(t, svc, CreateMedicineRequest{Name: "Rarísimo", Stock: 1})
	if rec.ActiveIngredient != "Sin información" {
		t.Errorf("active ingredient = %q, want placeholder", rec.ActiveIngredient)
	}
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

func (failingStore) ReadAll(context.Context, string) ([]string, [][]string, error) {
	return nil, nil, fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
}
func (failingStore) UpdateCell(context.Context, string, int, int, string) error {
	return fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
}
func (failingStore) AppendRow(context.Context, string, []string) error {
	return fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
}
func (failingStore) DeleteRow(context.Context, string, int) error {
	return fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
}

func TestMutations_BackendUnavailable(t *testing.T) {
	invRepo := repositories.NewInventoryRepository(failingStore{})
	auditRepo := repositories.NewAuditRepository(failingStore{})
	svc := NewInventoryService(invRepo, auditRepo, NewExpiryClassifier(60), nil, InventoryConfig{})
	ctx := context.Background()

	if _, err := svc.Withdraw(ctx, admin, "id"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("withdraw: expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := svc.Create(ctx, admin, CreateMedicineRequest{Name: "x"}); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("create: expected ErrBackendUnavailable, got %v", err)
	}
	if err := svc.Delete(ctx, admin, "id"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("delete: expected ErrBackendUnavailable, got %v", err)
	}

	// Reads fail soft: an empty list, not an error.
	records, err := svc.ListVisible(ctx, viewer)
	if err != nil {
		t.Errorf("list: expected fail-soft read, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("list returned %d records from a dead backend", len(records))
	}
}
