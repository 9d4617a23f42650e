package nurture

import (
	"context"
	"time"

	"github.com/getlisted/claim-engine/internal/domain"
)

// CampaignStore is the data access contract for nurture campaigns.
// Implementations must be safe for concurrent use.
type CampaignStore interface {
	// ListDue returns up to limit campaigns with status=active, opted_out
	// false, and next_email_due_at <= now, ordered by due date ascending.
	// Opted-out campaigns are excluded here, not filtered by the caller.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.NurtureCampaign, error)

	// Advance records a successful send: current_step and emails_sent become
	// step, last_email_sent_at becomes sentAt, and next_email_due_at becomes
	// nextDue. A nil nextDue completes the campaign.
	Advance(ctx context.Context, id string, step int, sentAt time.Time, nextDue *time.Time) error

	// Terminate completes a campaign without a send (listing no longer
	// eligible). Clears next_email_due_at.
	Terminate(ctx context.Context, id string) error
}

// ListingReader is the read-only slice of the ownership store the scheduler
// uses to re-validate eligibility before every send.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

// Dispatcher delivers one templated email.
type Dispatcher interface {
	Send(ctx context.Context, templateID, to string, payload map[string]interface{}) error
}

// ViewCounter reads recent view counts for message personalization. Failures
// must not block a send; callers default to 0.
type ViewCounter interface {
	RecentViewCount(ctx context.Context, listingID string, windowDays int) (int, error)
}
