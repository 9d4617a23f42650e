package nurture

import "github.com/getlisted/claim-engine/internal/domain"

// Eligible reports whether a listing may still receive outreach: it must be
// unclaimed, live, and on the free plan. This is the guard between "due" and
// "send"; it is re-evaluated against a fresh listing read on every tick
// rather than cached, so the scheduler never acts on stale ownership state.
func Eligible(l *domain.Listing) bool {
	return l.OwnershipState == domain.OwnershipUnclaimed &&
		l.Status == domain.ListingLive &&
		l.Plan == domain.PlanFree
}
