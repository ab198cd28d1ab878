package services

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestClassify_DateBoundaries(t *testing.T) {
	classifier := NewExpiryClassifier(60)
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name   string
		expiry *time.Time
		want   ExpiryStatus
	}{
		{"yesterday is expired", date(2026, 3, 14), ExpiryExpired},
		{"today is not expired", date(2026, 3, 15), ExpiryWarning},
		{"tomorrow is warning", date(2026, 3, 16), ExpiryWarning},
		{"exactly 60 days out is warning", date(2026, 5, 14), ExpiryWarning},
		{"just past the window is ok", date(2026, 5, 15), ExpiryOK},
		{"far future is ok", date(2027, 1, 1), ExpiryOK},
		{"no expiry date is ok", nil, ExpiryOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifier.Classify(tc.expiry, now)
			if got != tc.want {
				t.Errorf("Classify(%v) = %v, want %v", tc.expiry, got, tc.want)
			}
		})
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	classifier := NewExpiryClassifier(60)

	// Expiry at 23:59 today against a clock of 00:01 today: same date, so
	// not expired.
	expiry := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	if got := classifier.Classify(&expiry, now); got == ExpiryExpired {
		t.Errorf("medicine expiring today classified as expired")
	}
}

func TestNewExpiryClassifier_DefaultsWindow(t *testing.T) {
	if c := NewExpiryClassifier(0); c.WarningWindowDays != DefaultWarningWindowDays {
		t.Errorf("window = %d, want default %d", c.WarningWindowDays, DefaultWarningWindowDays)
	}
	if c := NewExpiryClassifier(-5); c.WarningWindowDays != DefaultWarningWindowDays {
		t.Errorf("window = %d, want default %d", c.WarningWindowDays, DefaultWarningWindowDays)
	}
	if c := NewExpiryClassifier(30); c.WarningWindowDays != 30 {
		t.Errorf("window = %d, want 30", c.WarningWindowDays)
	}
}
