package nurture

import (
	"time"

	"github.com/getlisted/claim-engine/internal/domain"
)

// stepSpec maps a step to the template it sends and the delay until the step
// after it. A zero delay means the campaign completes after this send.
type stepSpec struct {
	template  string
	nextDelay time.Duration
}

// The outreach sequence. Keyed by the step being sent (current step + 1):
// enrollment (step 1) sends nothing; step 2 is the Day 3 email, step 3 the
// Day 7 email, step 4 the Day 14 email.
var stepSpecs = map[int]stepSpec{
	domain.StepDay3:  {template: domain.TemplateDay3CompleteProfile, nextDelay: 4 * 24 * time.Hour},
	domain.StepDay7:  {template: domain.TemplateDay7TrafficUpdate, nextDelay: 7 * 24 * time.Hour},
	domain.StepDay14: {template: domain.TemplateDay14UpgradeOffer},
}
