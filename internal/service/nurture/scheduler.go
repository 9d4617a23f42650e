package nurture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getlisted/claim-engine/internal/domain"
	"github.com/getlisted/claim-engine/internal/pkg/logger"
	"github.com/getlisted/claim-engine/internal/token"
)

// DefaultBatchLimit caps how many due campaigns one tick processes.
const DefaultBatchLimit = 50

// ViewWindowDays is the lookback window for the personalization view count.
const ViewWindowDays = 30

// TickSummary aggregates the per-campaign outcomes of one scheduler tick.
type TickSummary struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Scheduler advances due campaigns. Invocations are expected not to overlap;
// that guarantee belongs to the external trigger, not to this type.
type Scheduler struct {
	campaigns  CampaignStore
	listings   ListingReader
	mail       Dispatcher
	views      ViewCounter
	codec      *token.Codec
	baseURL    string
	batchLimit int
	now        func() time.Time
}

// NewScheduler creates a scheduler. baseURL is the public origin embedded in
// opt-out links.
func NewScheduler(campaigns CampaignStore, listings ListingReader, mail Dispatcher, views ViewCounter, codec *token.Codec, baseURL string) *Scheduler {
	return &Scheduler{
		campaigns:  campaigns,
		listings:   listings,
		mail:       mail,
		views:      views,
		codec:      codec,
		baseURL:    strings.TrimRight(baseURL, "/"),
		batchLimit: DefaultBatchLimit,
		now:        time.Now,
	}
}

// SetBatchLimit overrides the per-tick batch cap.
func (s *Scheduler) SetBatchLimit(n int) {
	if n > 0 {
		s.batchLimit = n
	}
}

// SetClock overrides the clock, for tests with fixed time.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RunTick processes one batch of due campaigns to completion and returns a
// summary. One campaign failing never aborts the batch. A campaign advances
// by exactly one step per tick no matter how overdue it is: a backlog from
// scheduler downtime drains one email per tick instead of bursting.
func (s *Scheduler) RunTick(ctx context.Context) TickSummary {
	var sum TickSummary
	now := s.now().UTC()

	due, err := s.campaigns.ListDue(ctx, now, s.batchLimit)
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("list due campaigns: %v", err))
		return sum
	}

	for _, c := range due {
		outcome, err := s.processCampaign(ctx, c, now)
		switch outcome {
		case outcomeSent:
			sum.Sent++
		case outcomeSkipped:
			sum.Skipped++
		case outcomeFailed:
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("campaign %s: %v", c.ID, err))
		}
	}

	logger.Info("campaign tick complete",
		"due", len(due), "sent", sum.Sent, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processCampaign re-validates one due campaign and advances it by one step.
// On any failure the campaign is left untouched so the next tick retries it.
func (s *Scheduler) processCampaign(ctx context.Context, c domain.NurtureCampaign, now time.Time) (outcome, error) {
	l, err := s.listings.GetListing(ctx, c.ListingID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("fetch listing: %w", err)
	}

	if !Eligible(l) {
		if err := s.campaigns.Terminate(ctx, c.ID); err != nil {
			return outcomeFailed, fmt.Errorf("terminate: %w", err)
		}
		logger.Info("campaign terminated, listing no longer eligible",
			"campaign_id", c.ID, "listing_id", l.ID,
			"ownership", string(l.OwnershipState), "plan", string(l.Plan), "status", string(l.Status))
		return outcomeSkipped, nil
	}

	step := c.CurrentStep + 1
	spec, ok := stepSpecs[step]
	if !ok {
		// Past the final step but still active: a data anomaly, close it out.
		if err := s.campaigns.Terminate(ctx, c.ID); err != nil {
			return outcomeFailed, fmt.Errorf("terminate overrun: %w", err)
		}
		logger.Warn("campaign past final step", "campaign_id", c.ID, "current_step", c.CurrentStep)
		return outcomeSkipped, nil
	}

	payload, err := s.buildPayload(ctx, l)
	if err != nil {
		return outcomeFailed, err
	}

	if err := s.mail.Send(ctx, spec.template, c.EmailAddress, payload); err != nil {
		return outcomeFailed, fmt.Errorf("dispatch %s: %w", spec.template, err)
	}

	// The next due date is anchored to now, not to the missed due date, so a
	// late send never compresses the remaining sequence.
	var nextDue *time.Time
	if spec.nextDelay > 0 {
		d := now.Add(spec.nextDelay)
		nextDue = &d
	}
	if err := s.campaigns.Advance(ctx, c.ID, step, now, nextDue); err != nil {
		// The email went out but the advance didn't stick; the next tick will
		// resend this step. Accepted: dispatch failure retry and store
		// failure retry share the same coarse next-tick policy.
		return outcomeFailed, fmt.Errorf("advance after send: %w", err)
	}

	logger.Info("campaign step sent",
		"campaign_id", c.ID, "listing_id", c.ListingID, "step", step, "template", spec.template)
	return outcomeSent, nil
}

// buildPayload assembles the personalization payload for a step email. The
// view count is best-effort; the opt-out link is not (a campaign email must
// always carry a working opt-out).
func (s *Scheduler) buildPayload(ctx context.Context, l *domain.Listing) (map[string]interface{}, error) {
	views := 0
	if s.views != nil {
		n, err := s.views.RecentViewCount(ctx, l.ID, ViewWindowDays)
		if err != nil {
			logger.Debug("view count unavailable", "listing_id", l.ID, "error", err)
		} else {
			views = n
		}
	}

	optOut, err := s.codec.Issue(token.PurposeOptOut, l.ID)
	if err != nil {
		return nil, fmt.Errorf("issue opt-out token: %w", err)
	}

	return map[string]interface{}{
		"listing_name": l.Name,
		"listing_id":   l.ID,
		"view_count":   views,
		"claim_url":    fmt.Sprintf("%s/listings/%s/claim", s.baseURL, l.ID),
		"optout_url":   fmt.Sprintf("%s/optout/%s", s.baseURL, optOut),
	}, nil
}
