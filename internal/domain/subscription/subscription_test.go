package subscription

import (
	"testing"
	"time"

	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

func TestNextPeriodEnd_Month(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.March, 15), catalog.IntervalMonth)
	assert.Equal(t, date(2024, time.April, 15), end)
}

func TestNextPeriodEnd_MonthClampsToLeapFebruary(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.January, 31), catalog.IntervalMonth)
	assert.Equal(t, date(2024, time.February, 29), end)
}

func TestNextPeriodEnd_MonthClampsToShortFebruary(t *testing.T) {
	end := NextPeriodEnd(date(2023, time.January, 31), catalog.IntervalMonth)
	assert.Equal(t, date(2023, time.February, 28), end)
}

func TestNextPeriodEnd_MonthClampsThirtyDayMonth(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.May, 31), catalog.IntervalMonth)
	assert.Equal(t, date(2024, time.June, 30), end)
}

func TestNextPeriodEnd_MonthAcrossYearBoundary(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.December, 31), catalog.IntervalMonth)
	assert.Equal(t, date(2025, time.January, 31), end)
}

func TestNextPeriodEnd_Year(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.March, 15), catalog.IntervalYear)
	assert.Equal(t, date(2025, time.March, 15), end)
}

func TestNextPeriodEnd_YearClampsLeapDay(t *testing.T) {
	end := NextPeriodEnd(date(2024, time.February, 29), catalog.IntervalYear)
	assert.Equal(t, date(2025, time.February, 28), end)
}

func TestNextPeriodEnd_PreservesClock(t *testing.T) {
	start := time.Date(2024, time.January, 31, 23, 59, 58, 7, time.UTC)
	end := NextPeriodEnd(start, catalog.IntervalMonth)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 58, 7, time.UTC), end)
}

func TestNew(t *testing.T) {
	now := date(2024, time.January, 31)
	sub := New("plan-1", "", "guest@example.com", catalog.IntervalMonth, now)

	require.NotEmpty(t, sub.ID)
	assert.Equal(t, "plan-1", sub.PlanID)
	assert.Empty(t, sub.UserID)
	assert.Equal(t, "guest@example.com", sub.GuestEmail)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, now, sub.CurrentPeriodStart)
	assert.Equal(t, date(2024, time.February, 29), sub.CurrentPeriodEnd)
}

func TestNew_AuthenticatedPurchaser(t *testing.T) {
	now := date(2024, time.June, 1)
	sub := New("plan-2", "user-9", "", catalog.IntervalYear, now)

	assert.Equal(t, "user-9", sub.UserID)
	assert.Empty(t, sub.GuestEmail)
	assert.Equal(t, date(2025, time.June, 1), sub.CurrentPeriodEnd)
}
