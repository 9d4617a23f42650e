package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a nurture campaign.
type CampaignStatus string

const (
	CampaignActive       CampaignStatus = "active"
	CampaignCompleted    CampaignStatus = "completed"
	CampaignUnsubscribed CampaignStatus = "unsubscribed"
)

// Campaign step boundaries. Step 1 is enrollment; steps 2-4 each correspond
// to one outreach email.
const (
	StepEnrolled = 1
	StepDay3     = 2
	StepDay7     = 3
	StepDay14    = 4
	StepFinal    = StepDay14
)

// NurtureCampaign is one listing's multi-step outreach sequence. At most one
// active campaign exists per listing.
//
// EmailAddress is snapshotted at enrollment and never re-read from the
// listing, so a mid-sequence contact change does not redirect the remaining
// steps.
type NurtureCampaign struct {
	ID              string         `json:"id" db:"id"`
	ListingID       string         `json:"listing_id" db:"listing_id"`
	EmailAddress    string         `json:"email_address" db:"email_address"`
	CurrentStep     int            `json:"current_step" db:"current_step"`
	NextEmailDueAt  *time.Time     `json:"next_email_due_at" db:"next_email_due_at"`
	Status          CampaignStatus `json:"status" db:"status"`
	OptedOut        bool           `json:"opted_out" db:"opted_out"`
	EmailsSent      int            `json:"emails_sent" db:"emails_sent"`
	LastEmailSentAt *time.Time     `json:"last_email_sent_at" db:"last_email_sent_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign can never send again.
func (c *NurtureCampaign) IsTerminal() bool {
	return c.OptedOut || c.Status == CampaignCompleted || c.Status == CampaignUnsubscribed
}
