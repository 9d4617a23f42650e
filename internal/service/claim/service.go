package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/getlisted/claim-engine/internal/domain"
	"github.com/getlisted/claim-engine/internal/pkg/logger"
	"github.com/getlisted/claim-engine/internal/token"
)

// Service implements the claim state machine. It coordinates the token codec,
// the ownership store and the email dispatcher; it holds no state of its own.
type Service struct {
	listings  OwnershipStore
	campaigns CampaignStore
	codec     *token.Codec
	mail      Dispatcher
	baseURL   string
}

// NewService creates a claim service. baseURL is the public origin embedded
// in verification links, e.g. "https://directory.example.com".
func NewService(listings OwnershipStore, campaigns CampaignStore, codec *token.Codec, mail Dispatcher, baseURL string) *Service {
	return &Service{
		listings:  listings,
		campaigns: campaigns,
		codec:     codec,
		mail:      mail,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// RequestClaim issues a claim token for an unclaimed listing and emails the
// verification link to the listing's contact address. Ownership is not
// mutated: the listing stays claimable by anyone until a token is verified,
// so a mere request can never block other claimants or produce a false
// "claimed" read.
func (s *Service) RequestClaim(ctx context.Context, listingID, message string) error {
	l, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if !l.IsClaimable() {
		return ErrNotClaimable
	}

	tok, err := s.codec.Issue(token.PurposeClaim, l.ID)
	if err != nil {
		return fmt.Errorf("issue claim token: %w", err)
	}

	payload := map[string]interface{}{
		"listing_name":  l.Name,
		"verify_url":    fmt.Sprintf("%s/claim/verify/%s", s.baseURL, tok),
		"message":       message,
		"expires_hours": int(token.ClaimTTL.Hours()),
	}
	if err := s.mail.Send(ctx, domain.TemplateClaimVerification, l.Email, payload); err != nil {
		return fmt.Errorf("send claim verification: %w", err)
	}

	logger.Info("claim requested", "listing_id", l.ID, "email", l.Email)
	return nil
}

// VerifyClaim consumes a claim token and transfers ownership exactly once.
// claimantID is the account resolved by the surrounding application; when
// empty a vendor account id is minted, since the token alone proves control
// of the listing's contact address.
//
// Two concurrent calls for the same listing resolve to one success and one
// ErrAlreadyClaimed through the store's conditional update.
func (s *Service) VerifyClaim(ctx context.Context, tok, claimantID string) error {
	listingID, err := s.codec.Verify(tok, token.PurposeClaim)
	if err != nil {
		return ErrTokenInvalid
	}
	if claimantID == "" {
		claimantID = uuid.New().String()
	}

	if err := s.listings.ConditionalSetClaimed(ctx, listingID, claimantID); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("finalize claim: %w", err)
	}

	// Ownership has transferred; the campaign side effect is best-effort.
	// If it fails, the next scheduler tick's re-validation terminates the
	// campaign anyway.
	if err := s.campaigns.CompleteForListing(ctx, listingID); err != nil {
		logger.Warn("complete campaign after claim", "listing_id", listingID, "error", err)
	}

	logger.Info("listing claimed", "listing_id", listingID, "owner_id", claimantID)
	return nil
}

// OptOut consumes an opt-out token and permanently excludes the listing's
// campaign from scheduling. Repeated calls with the same valid token are
// harmless no-ops after the first.
func (s *Service) OptOut(ctx context.Context, tok string) error {
	listingID, err := s.codec.Verify(tok, token.PurposeOptOut)
	if err != nil {
		return ErrTokenInvalid
	}
	if err := s.campaigns.MarkOptedOut(ctx, listingID); err != nil {
		return fmt.Errorf("mark opted out: %w", err)
	}
	logger.Info("campaign opted out", "listing_id", listingID)
	return nil
}
