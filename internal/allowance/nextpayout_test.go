package allowance

import (
	"testing"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestNextPayoutWeekly(t *testing.T) {
	from := date(2025, time.March, 3)
	require.Equal(t, date(2025, time.March, 10), NextPayout(models.Weekly, from))
}

func TestNextPayoutBiweekly(t *testing.T) {
	from := date(2025, time.March, 3)
	require.Equal(t, date(2025, time.March, 17), NextPayout(models.Biweekly, from))
}

func TestNextPayoutMonthlyKeepsDay(t *testing.T) {
	from := date(2025, time.March, 15)
	require.Equal(t, date(2025, time.April, 15), NextPayout(models.Monthly, from))
}

func TestNextPayoutMonthlyClampsToShortMonth(t *testing.T) {
	// Jan 31 -> Feb 28, never Mar 3.
	require.Equal(t, date(2025, time.February, 28), NextPayout(models.Monthly, date(2025, time.January, 31)))
	require.Equal(t, date(2025, time.April, 30), NextPayout(models.Monthly, date(2025, time.March, 31)))
}

func TestNextPayoutMonthlyLeapYear(t *testing.T) {
	require.Equal(t, date(2024, time.February, 29), NextPayout(models.Monthly, date(2024, time.January, 31)))
}

func TestNextPayoutMonthlyAcrossYearEnd(t *testing.T) {
	require.Equal(t, date(2026, time.January, 31), NextPayout(models.Monthly, date(2025, time.December, 31)))
}

func TestNextPayoutDeterministic(t *testing.T) {
	from := date(2025, time.January, 31)
	for _, freq := range []models.Frequency{models.Weekly, models.Biweekly, models.Monthly} {
		first := NextPayout(freq, from)
		second := NextPayout(freq, from)
		require.True(t, first.Equal(second), "frequency %s not deterministic", freq)
	}
}

func TestNextPayoutPreservesClock(t *testing.T) {
	from := time.Date(2025, time.June, 10, 16, 45, 12, 0, time.UTC)
	next := NextPayout(models.Monthly, from)
	require.Equal(t, 16, next.Hour())
	require.Equal(t, 45, next.Minute())
	require.Equal(t, 12, next.Second())
}
