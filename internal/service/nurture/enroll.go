package nurture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/getlisted/claim-engine/internal/pkg/logger"
)

// ErrNotEligible means the listing does not qualify for outreach (it is
// claimed, unpublished, or on a paid plan).
var ErrNotEligible = errors.New("listing not eligible for nurture")

// EnrollmentStore creates campaign records. Enroll must be idempotent per
// listing (one active campaign per listing).
type EnrollmentStore interface {
	Enroll(ctx context.Context, id, listingID, email string, now time.Time) error
}

// EnrollService enrolls qualifying listings into the nurture sequence. The
// recipient address is snapshotted from the listing at this moment.
type EnrollService struct {
	campaigns EnrollmentStore
	listings  ListingReader
	now       func() time.Time
}

// NewEnrollService creates an enrollment service.
func NewEnrollService(campaigns EnrollmentStore, listings ListingReader) *EnrollService {
	return &EnrollService{campaigns: campaigns, listings: listings, now: time.Now}
}

// EnrollListing creates a campaign at step 1 with the first email due three
// days out. Returns ErrNotEligible when the listing does not qualify.
func (e *EnrollService) EnrollListing(ctx context.Context, listingID string) error {
	l, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if !Eligible(l) {
		return ErrNotEligible
	}

	if err := e.campaigns.Enroll(ctx, uuid.New().String(), l.ID, l.Email, e.now().UTC()); err != nil {
		return fmt.Errorf("enroll listing: %w", err)
	}
	logger.Info("listing enrolled", "listing_id", l.ID, "email", l.Email)
	return nil
}
