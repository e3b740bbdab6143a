package model

import "time"

// UsageByDate maps an ISO date (YYYY-MM-DD) to the number of quota-consuming
// actions a single device took on that date. The storage layer persists it as
// an opaque JSON column; everything above the repository treats it as a plain
// in-memory map.
type UsageByDate map[string]int

// On returns the count recorded for day, zero when absent.
func (u UsageByDate) On(day string) int {
	if u == nil {
		return 0
	}
	return u[day]
}

// Total sums usage across all recorded days.
func (u UsageByDate) Total() int {
	n := 0
	for _, c := range u {
		n += c
	}
	return n
}

// RedemptionRecord is the ledger row for one (code, device) pair. ExpiresAt is
// written once when the device first redeems and never updated afterwards; the
// earliest ExpiresAt across a code's records governs expiry for every device.
type RedemptionRecord struct {
	ID          string
	CodeID      string
	Code        string
	DeviceID    string
	ExpiresAt   time.Time
	Usage       UsageByDate
	ActivatedAt time.Time
}
