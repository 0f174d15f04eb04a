package order

import "strings"

// ProviderStatus is the normalized form of the payment provider's status
// vocabulary. Providers report the same logical outcome under several
// synonym strings; everything the parser does not recognize is Unknown.
type ProviderStatus int

const (
	ProviderStatusUnknown ProviderStatus = iota
	ProviderStatusCompleted
	ProviderStatusFailed
	ProviderStatusPending
)

// ParseProviderStatus maps a raw provider status string to its normalized
// form. Matching is case-insensitive, and dotted event names such as
// "payment.failed" match on their last segment.
func ParseProviderStatus(raw string) ProviderStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch s {
	case "paid", "success", "completed":
		return ProviderStatusCompleted
	case "failed", "cancelled", "canceled", "error":
		return ProviderStatusFailed
	case "pending", "processing":
		return ProviderStatusPending
	default:
		return ProviderStatusUnknown
	}
}

// OrderStatus returns the order status a provider status reconciles to.
// Unknown maps to pending: a status we cannot interpret must never move an
// order toward a terminal state.
func (ps ProviderStatus) OrderStatus() Status {
	switch ps {
	case ProviderStatusCompleted:
		return StatusCompleted
	case ProviderStatusFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

func (ps ProviderStatus) String() string {
	switch ps {
	case ProviderStatusCompleted:
		return "completed"
	case ProviderStatusFailed:
		return "failed"
	case ProviderStatusPending:
		return "pending"
	default:
		return "unknown"
	}
}
