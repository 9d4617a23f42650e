// Package nurture advances due outreach campaigns by exactly one step per
// tick. A tick is driven by an external recurring trigger (cron or the
// scheduler binary); the package never runs its own loop.
//
// Every due campaign is re-validated against the live listing before a send,
// so a vendor who has claimed, upgraded, or unpublished since enrollment is
// never emailed again.
package nurture
