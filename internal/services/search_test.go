package services

import (
	"testing"

	"botiquin_backend/internal/models"
)

func namedRecords(names ...string) []models.MedicineRecord {
	records := make([]models.MedicineRecord, len(names))
	for i, n := range names {
		records[i] = models.MedicineRecord{ID: n, Name: n}
	}
	return records
}

func resultIDs(records []models.MedicineRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestFilterRecords_CaseAndDiacriticInsensitive(t *testing.T) {
	records := namedRecords("Ibuprofeno 600mg", "Paracetamol", "Omeprazol")

	got := FilterRecords(records, "ibuprofeno")
	if len(got) != 1 || got[0].Name != "Ibuprofeno 600mg" {
		t.Errorf("query %q matched %v", "ibuprofeno", resultIDs(got))
	}

	// Accented query against unaccented data and vice versa.
	got = FilterRecords(namedRecords("Analgésico"), "analgesico")
	if len(got) != 1 {
		t.Errorf("unaccented query did not match accented name")
	}
	got = FilterRecords(namedRecords("Analgesico"), "analgésico")
	if len(got) != 1 {
		t.Errorf("accented query did not match unaccented name")
	}
}

func TestFilterRecords_MatchesLocationAndDescription(t *testing.T) {
	records := []models.MedicineRecord{
		{ID: "a", Name: "Paracetamol", Location: "Botiquín Baño"},
		{ID: "b", Name: "Ibuprofeno", Description: "antiinflamatorio"},
		{ID: "c", Name: "Omeprazol"},
	}

	if got := FilterRecords(records, "baño"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("location query matched %v", resultIDs(got))
	}
	if got := FilterRecords(records, "antiinflamatorio"); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("description query matched %v", resultIDs(got))
	}
}

func TestFilterRecords_EmptyQueryReturnsAll(t *testing.T) {
	records := namedRecords("a", "b", "c")
	if got := FilterRecords(records, ""); len(got) != 3 {
		t.Errorf("empty query returned %d records, want 3", len(got))
	}
	if got := FilterRecords(records, "   "); len(got) != 3 {
		t.Errorf("whitespace query returned %d records, want 3", len(got))
	}
}

func TestFilterRecords_PreservesInputOrder(t *testing.T) {
	records := namedRecords("Amoxicilina", "Ibuprofeno", "Aspirina")
	got := FilterRecords(records, "in")
	want := []string{"Amoxicilina", "Aspirina"}
	ids := resultIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("matched %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}
