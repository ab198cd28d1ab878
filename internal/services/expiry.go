package services

import "time"

// ExpiryStatus classifies a medicine's expiry date relative to today.
type ExpiryStatus string

const (
	ExpiryOK      ExpiryStatus = "OK"
	ExpiryWarning ExpiryStatus = "WARNING"
	ExpiryExpired ExpiryStatus = "EXPIRED"
)

// DefaultWarningWindowDays is how far ahead of the expiry date a medicine
// starts being flagged. Overridable via EXPIRY_WARNING_DAYS.
const DefaultWarningWindowDays = 60

// ExpiryClassifier is a pure date classifier: no clocks, no side effects.
type ExpiryClassifier struct {
	WarningWindowDays int
}

// NewExpiryClassifier returns a classifier with the given warning window;
// days <= 0 falls back to the default.
func NewExpiryClassifier(days int) ExpiryClassifier {
	if days <= 0 {
		days = DefaultWarningWindowDays
	}
	return ExpiryClassifier{WarningWindowDays: days}
}

// Classify maps an expiry date to a status. Comparison is at date
// granularity: a medicine expiring today is not yet expired. A nil expiry
// (absent or unparseable in the source row) fails open to OK so that bad
// data never alarms.
func (c ExpiryClassifier) Classify(expiry *time.Time, now time.Time) ExpiryStatus {
	if expiry == nil {
		return ExpiryOK
	}
	today := truncateToDay(now)
	day := truncateToDay(*expiry)

	if day.Before(today) {
		return ExpiryExpired
	}
	if !day.After(today.AddDate(0, 0, c.WarningWindowDays)) {
		return ExpiryWarning
	}
	return ExpiryOK
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
