package checkout

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minQuantity = 1
	maxQuantity = 100

	minPhoneDigits = 10
	maxPhoneDigits = 15

	maxURLLength = 2048
)

var (
	uuidRe     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

func isUUID(s string) bool {
	return uuidRe.MatchString(strings.ToLower(s))
}

func isEmail(s string) bool {
	return emailRe.MatchString(s)
}

// normalizePhone strips everything but digits; phone numbers are stored and
// sent to the gateway digits-only.
func normalizePhone(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

func validatePlanID(planID string, errs []string) []string {
	if planID == "" {
		return append(errs, "plan_id is required")
	}
	if !isUUID(planID) {
		return append(errs, "plan_id must be a valid UUID")
	}
	return errs
}

func validateQuantity(quantity int, errs []string) []string {
	if quantity < minQuantity || quantity > maxQuantity {
		return append(errs, fmt.Sprintf("quantity must be between %d and %d", minQuantity, maxQuantity))
	}
	return errs
}

func validatePhone(phone string, errs []string) []string {
	if phone == "" {
		return append(errs, "phone_number is required")
	}
	digits := normalizePhone(phone)
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return append(errs, fmt.Sprintf("phone_number must be %d-%d digits", minPhoneDigits, maxPhoneDigits))
	}
	return errs
}

// validatePurchaser enforces the identity XOR rule: an authenticated user id
// or a well-formed guest email, never neither.
func validatePurchaser(userID, guestEmail string, errs []string) []string {
	if userID != "" {
		return errs
	}
	if guestEmail == "" {
		return append(errs, "either user authentication or guest_email is required")
	}
	if !isEmail(guestEmail) {
		return append(errs, "guest_email must be a valid email address")
	}
	return errs
}

// validateURL checks length only; a blank URL falls back to the configured
// redirect target later.
func validateURL(value, field string, errs []string) []string {
	if len(value) > maxURLLength {
		return append(errs, fmt.Sprintf("%s must be at most %d characters", field, maxURLLength))
	}
	return errs
}
