package subscription

import (
	"time"

	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/google/uuid"
)

const StatusActive = "active"

// Subscription is the entitlement record created once an order completes.
// Exactly one of UserID and GuestEmail is set, mirroring the order it was
// issued for.
type Subscription struct {
	ID                 string    `json:"id"`
	PlanID             string    `json:"plan_id"`
	UserID             string    `json:"user_id,omitempty"`
	GuestEmail         string    `json:"guest_email,omitempty"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CreatedAt          time.Time `json:"created_at"`
}

// New issues an active subscription starting now, with the period end one
// calendar interval ahead.
func New(planID, userID, guestEmail string, interval catalog.Interval, now time.Time) *Subscription {
	return &Subscription{
		ID:                 uuid.New().String(),
		PlanID:             planID,
		UserID:             userID,
		GuestEmail:         guestEmail,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   NextPeriodEnd(now, interval),
		CreatedAt:          now,
	}
}

// NextPeriodEnd adds one calendar interval to start. The day of month is
// clamped to the last day of the target month, so a monthly period starting
// Jan 31 ends Feb 29 in a leap year and Feb 28 otherwise. time.Time.AddDate
// would overflow into March instead, which is why the arithmetic is explicit.
func NextPeriodEnd(start time.Time, interval catalog.Interval) time.Time {
	months := 12
	if interval == catalog.IntervalMonth {
		months = 1
	}
	return addMonthsClamped(start, months)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
