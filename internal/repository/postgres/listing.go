// Package postgres implements the ownership and campaign stores against
// PostgreSQL. All conditional transitions are expressed as guarded UPDATEs
// checked via affected-row counts, so correctness never depends on
// application-level locking.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getlisted/claim-engine/internal/domain"
	"github.com/getlisted/claim-engine/internal/service/claim"
)

// ListingRepo implements claim.OwnershipStore and nurture.ListingReader.
type ListingRepo struct{ db *sql.DB }

// NewListingRepo creates a Postgres-backed listing repository.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

func (r *ListingRepo) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	l := &domain.Listing{}
	var ownerID sql.NullString
	var claimedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, ownership_state, owner_id, plan, status,
		       claimed_at, created_at, updated_at
		FROM listings
		WHERE id = $1
	`, id).Scan(
		&l.ID, &l.Name, &l.Email, &l.OwnershipState, &ownerID, &l.Plan, &l.Status,
		&claimedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, claim.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if ownerID.Valid {
		l.OwnerID = &ownerID.String
	}
	if claimedAt.Valid {
		l.ClaimedAt = &claimedAt.Time
	}
	return l, nil
}

// ConditionalSetClaimed transfers ownership only if the listing is still
// unclaimed. The WHERE clause is the compare-and-set: under concurrent
// verification attempts exactly one UPDATE matches a row.
func (r *ListingRepo) ConditionalSetClaimed(ctx context.Context, listingID, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET ownership_state = $3, owner_id = $2, claimed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND ownership_state = $4
	`, listingID, ownerID, domain.OwnershipClaimed, domain.OwnershipUnclaimed)
	if err != nil {
		return fmt.Errorf("set claimed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return nil
	}

	// No row matched: either the listing is gone or someone else won the race.
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, listingID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check listing: %w", err)
	}
	if !exists {
		return claim.ErrNotFound
	}
	return claim.ErrAlreadyClaimed
}
