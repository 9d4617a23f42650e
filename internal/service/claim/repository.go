package claim

import (
	"context"

	"github.com/getlisted/claim-engine/internal/domain"
)

// OwnershipStore is the data access contract for listing ownership.
// Implementations must be safe for concurrent use.
type OwnershipStore interface {
	// GetListing returns a single listing. Returns ErrNotFound if it doesn't exist.
	GetListing(ctx context.Context, id string) (*domain.Listing, error)

	// ConditionalSetClaimed transfers ownership atomically: it sets
	// ownership_state=claimed and owner_id only if the listing is currently
	// unclaimed. Returns ErrAlreadyClaimed when the precondition fails and
	// ErrNotFound when the listing doesn't exist. This compare-and-set is the
	// exactly-once guarantee under concurrent verification; it must be backed
	// by the store's own atomic primitive, never read-then-write.
	ConditionalSetClaimed(ctx context.Context, listingID, ownerID string) error
}

// CampaignStore is the slice of campaign persistence the claim flow needs.
type CampaignStore interface {
	// CompleteForListing transitions the listing's active campaign to
	// completed. A no-op when no active campaign exists.
	CompleteForListing(ctx context.Context, listingID string) error

	// MarkOptedOut permanently excludes the listing's campaign from
	// scheduling. Idempotent.
	MarkOptedOut(ctx context.Context, listingID string) error
}

// Dispatcher delivers one templated email. Rendering and transport live
// behind this interface.
type Dispatcher interface {
	Send(ctx context.Context, templateID, to string, payload map[string]interface{}) error
}
