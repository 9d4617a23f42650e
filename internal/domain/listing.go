package domain

import "time"

// OwnershipState enumerates the ownership lifecycle of a listing.
type OwnershipState string

const (
	// OwnershipUnclaimed means no vendor owns the listing. Requesting a claim
	// does not leave this state; a listing stays unclaimed (and claimable by
	// anyone) until a claim token is actually verified.
	OwnershipUnclaimed OwnershipState = "unclaimed"
	// OwnershipPending marks a listing whose ownership is under manual review.
	OwnershipPending OwnershipState = "pending_verification"
	// OwnershipClaimed means owner_id is set and the listing belongs to a vendor.
	OwnershipClaimed OwnershipState = "claimed"
)

// Plan enumerates the paid tiers a listing can be on.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanStandard Plan = "standard"
	PlanPro      Plan = "pro"
	PlanPremium  Plan = "premium"
)

// ListingStatus enumerates publication states.
type ListingStatus string

const (
	ListingLive     ListingStatus = "live"
	ListingDraft    ListingStatus = "draft"
	ListingArchived ListingStatus = "archived"
)

// Listing is the subset of a directory listing the claim and nurture engine
// operates on. The surrounding application owns the rest of the row.
type Listing struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Email          string         `json:"email" db:"email"`
	OwnershipState OwnershipState `json:"ownership_state" db:"ownership_state"`
	OwnerID        *string        `json:"owner_id" db:"owner_id"`
	Plan           Plan           `json:"plan" db:"plan"`
	Status         ListingStatus  `json:"status" db:"status"`
	ClaimedAt      *time.Time     `json:"claimed_at" db:"claimed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsClaimable reports whether a claim may be requested for the listing.
func (l *Listing) IsClaimable() bool {
	return l.OwnershipState == OwnershipUnclaimed
}

// IsLive reports whether the listing is publicly visible.
func (l *Listing) IsLive() bool {
	return l.Status == ListingLive
}
