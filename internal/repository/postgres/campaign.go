package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/getlisted/claim-engine/internal/domain"
)

// CampaignRepo implements nurture.CampaignStore and claim.CampaignStore.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// ListDue returns active, not-opted-out campaigns whose next send time has
// passed, oldest due first. Stable ordering bounds staleness when repeated
// partial batches drain a backlog.
func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.NurtureCampaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, listing_id, email_address, current_step, next_email_due_at,
		       status, opted_out, emails_sent, last_email_sent_at, created_at, updated_at
		FROM nurture_campaigns
		WHERE status = $1
		  AND opted_out = FALSE
		  AND next_email_due_at IS NOT NULL
		  AND next_email_due_at <= $2
		ORDER BY next_email_due_at ASC
		LIMIT $3
	`, domain.CampaignActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.NurtureCampaign
	for rows.Next() {
		var c domain.NurtureCampaign
		var nextDue, lastSent sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.ListingID, &c.EmailAddress, &c.CurrentStep, &nextDue,
			&c.Status, &c.OptedOut, &c.EmailsSent, &lastSent, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		if nextDue.Valid {
			c.NextEmailDueAt = &nextDue.Time
		}
		if lastSent.Valid {
			c.LastEmailSentAt = &lastSent.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Advance records a successful send. emails_sent mirrors current_step after
// every send; a nil nextDue completes the campaign in the same statement.
func (r *CampaignRepo) Advance(ctx context.Context, id string, step int, sentAt time.Time, nextDue *time.Time) error {
	var due sql.NullTime
	if nextDue != nil {
		due = sql.NullTime{Time: *nextDue, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE nurture_campaigns
		SET current_step = $2,
		    emails_sent = $2,
		    last_email_sent_at = $3,
		    next_email_due_at = $4,
		    status = CASE WHEN $4::timestamptz IS NULL THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, step, sentAt, due)
	if err != nil {
		return fmt.Errorf("advance campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("advance campaign: %s not active", id)
	}
	return nil
}

// Terminate completes a campaign without a send. A no-op if the campaign is
// no longer active.
func (r *CampaignRepo) Terminate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nurture_campaigns
		SET status = 'completed', next_email_due_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf("terminate campaign: %w", err)
	}
	return nil
}

// CompleteForListing completes the listing's active campaign after a
// successful claim. A no-op when no active campaign exists.
func (r *CampaignRepo) CompleteForListing(ctx context.Context, listingID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nurture_campaigns
		SET status = 'completed', next_email_due_at = NULL, updated_at = NOW()
		WHERE listing_id = $1 AND status = 'active'
	`, listingID)
	if err != nil {
		return fmt.Errorf("complete campaign for listing: %w", err)
	}
	return nil
}

// MarkOptedOut permanently excludes the listing's campaign from scheduling.
// Idempotent: zero rows affected is success.
func (r *CampaignRepo) MarkOptedOut(ctx context.Context, listingID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nurture_campaigns
		SET opted_out = TRUE, status = 'unsubscribed', next_email_due_at = NULL, updated_at = NOW()
		WHERE listing_id = $1 AND opted_out = FALSE
	`, listingID)
	if err != nil {
		return fmt.Errorf("mark opted out: %w", err)
	}
	return nil
}

// Enroll creates the campaign record for a newly qualifying listing with the
// first email due at enrollment + 3 days. Enrollment is triggered by the
// surrounding application when a free, unclaimed listing goes live.
func (r *CampaignRepo) Enroll(ctx context.Context, id, listingID, email string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nurture_campaigns
			(id, listing_id, email_address, current_step, next_email_due_at,
			 status, opted_out, emails_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, 0, NOW(), NOW())
		ON CONFLICT (listing_id) DO NOTHING
	`, id, listingID, email, domain.StepEnrolled, now.Add(3*24*time.Hour), domain.CampaignActive)
	if err != nil {
		return fmt.Errorf("enroll campaign: %w", err)
	}
	return nil
}
