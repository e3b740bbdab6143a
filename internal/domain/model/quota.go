package model

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Today formats now as the ISO date key used in UsageByDate. Dates are taken
// in UTC so every device of a code shares the same quota window.
func Today(now time.Time) string {
	return now.UTC().Format(dayLayout)
}

// AggregateState is the quota engine's view of one code across all devices
// that redeemed it. It is derived, never stored.
type AggregateState struct {
	// TotalUsedToday sums today's usage over every record of the code.
	TotalUsedToday int
	// EffectiveExpiry is the earliest non-zero ExpiresAt across records;
	// zero when the code has no record yet. The first device to redeem
	// sets the clock for everyone.
	EffectiveExpiry time.Time
	// DaysLeft is the number of whole days until EffectiveExpiry, floored
	// at zero. Without any record it falls back to the code's ValidityDays.
	DaysLeft int
	// DailyRemaining is the code-wide quota left today, floored at zero.
	DailyRemaining int
}

// Expired reports whether the effective expiry has passed. A code with no
// record yet is never expired.
func (a AggregateState) Expired(now time.Time) bool {
	return !a.EffectiveExpiry.IsZero() && a.EffectiveExpiry.Before(now)
}

// ComputeAggregate evaluates the shared quota state for code given the full
// set of its redemption records. Pure: both the redemption path and the
// usage-recording path call it so they enforce identical rules.
func ComputeAggregate(code *ActivationCode, records []*RedemptionRecord, today string, now time.Time) AggregateState {
	agg := AggregateState{}
	for _, rec := range records {
		agg.TotalUsedToday += rec.Usage.On(today)
		if rec.ExpiresAt.IsZero() {
			continue
		}
		if agg.EffectiveExpiry.IsZero() || rec.ExpiresAt.Before(agg.EffectiveExpiry) {
			agg.EffectiveExpiry = rec.ExpiresAt
		}
	}

	agg.DaysLeft = code.ValidityDays
	if !agg.EffectiveExpiry.IsZero() {
		agg.DaysLeft = DaysUntil(agg.EffectiveExpiry, now)
	}

	agg.DailyRemaining = code.DailyLimit - agg.TotalUsedToday
	if agg.DailyRemaining < 0 {
		agg.DailyRemaining = 0
	}
	return agg
}

// DaysUntil returns the number of whole days from now until t, floored at zero.
func DaysUntil(t, now time.Time) int {
	left := t.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}

// TimeRemaining is a human-readable breakdown of the time left until a code's
// effective expiry, used by the admin list and stats views.
type TimeRemaining struct {
	Days    int    `json:"days"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Text    string `json:"text"`
}

// RemainingUntil breaks the interval from now to t into days/hours/minutes.
// A past or zero t yields the "expired" breakdown.
func RemainingUntil(t, now time.Time) TimeRemaining {
	left := t.Sub(now)
	if t.IsZero() || left <= 0 {
		return TimeRemaining{Text: "expired"}
	}
	days := int(left / (24 * time.Hour))
	left -= time.Duration(days) * 24 * time.Hour
	hours := int(left / time.Hour)
	left -= time.Duration(hours) * time.Hour
	minutes := int(left / time.Minute)
	return TimeRemaining{
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
		Text:    fmt.Sprintf("%dd %dh %dm", days, hours, minutes),
	}
}
