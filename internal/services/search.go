package services

import (
	"strings"

	"botiquin_backend/internal/models"
	"botiquin_backend/pkg/utils"
)

// FilterRecords returns every record whose normalized name, location or
// description contains the normalized query as a substring. An empty (or
// whitespace-only) query returns the input unfiltered. Matching is case-
// and diacritic-insensitive; input order is preserved, no ranking.
func FilterRecords(records []models.MedicineRecord, query string) []models.MedicineRecord {
	q := utils.NormalizeText(query)
	if q == "" {
		return records
	}
	filtered := make([]models.MedicineRecord, 0, len(records))
	for _, rec := range records {
		text := rec.SearchText
		if text == "" {
			text = utils.NormalizeText(rec.Name + " " + rec.Location + " " + rec.Description)
		}
		if strings.Contains(text, q) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
