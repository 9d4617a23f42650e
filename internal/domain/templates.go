package domain

// Template identifiers understood by the email dispatcher. The claim flow
// sends the verification template; the nurture scheduler sends one of the
// step templates per tick.
const (
	TemplateClaimVerification   = "claim-verification"
	TemplateDay3CompleteProfile = "nurture-day3-complete-profile"
	TemplateDay7TrafficUpdate   = "nurture-day7-traffic-update"
	TemplateDay14UpgradeOffer   = "nurture-day14-upgrade-offer"
)
