package model

import "time"

// FeatureWhatsAppExtract is the usage-counter key for the extraction pipeline.
const FeatureWhatsAppExtract = "whatsapp_extract"

// FeatureUsage is a monthly usage counter for a quota-gated feature.
type FeatureUsage struct {
	UserID   string
	Feature  string
	MonthKey string
	Count    int
	Limit    int
}

// Exceeded reports whether the counter has reached its limit. A zero limit
// means the feature is ungated.
func (u FeatureUsage) Exceeded() bool {
	return u.Limit > 0 && u.Count >= u.Limit
}

// Remaining returns how many uses are left this month, never negative.
func (u FeatureUsage) Remaining() int {
	if u.Limit <= 0 {
		return 0
	}
	if u.Count >= u.Limit {
		return 0
	}
	return u.Limit - u.Count
}

// MonthKey formats t as the usage-bucket key for its calendar month.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
