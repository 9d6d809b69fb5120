package allowance

import (
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
)

// NextPayout returns the payout time one cycle after from. Weekly and
// biweekly are fixed 7/14 day steps. Monthly lands on the same day-of-month
// in the next calendar month, clamped to that month's last day when the day
// does not exist there (Jan 31 -> Feb 28, or Feb 29 in a leap year, never
// Mar 3). Deterministic: same inputs, same output.
func NextPayout(freq models.Frequency, from time.Time) time.Time {
	switch freq {
	case models.Weekly:
		return from.AddDate(0, 0, 7)
	case models.Biweekly:
		return from.AddDate(0, 0, 14)
	case models.Monthly:
		year, month, day := from.Date()
		// time.Date normalizes month+1 past December.
		if last := daysInMonth(year, month+1); day > last {
			day = last
		}
		return time.Date(year, month+1, day,
			from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	}
	return from
}

// daysInMonth returns the number of days in the (possibly unnormalized)
// month. Day 0 of the following month is the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
