// Package dispatch renders and delivers the engine's transactional emails.
// Rendering uses Liquid templates; transport is AWS SESv2 (or a log-only
// sender for local development).
package dispatch

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/getlisted/claim-engine/internal/domain"
)

// templateDef holds the Liquid sources for one email.
type templateDef struct {
	Subject string
	HTML    string
}

// Registry compiles and caches Liquid templates by id.
type Registry struct {
	engine *liquid.Engine
	defs   map[string]templateDef
	cache  sync.Map // template id -> *compiled
}

type compiled struct {
	subject *liquid.Template
	html    *liquid.Template
}

// NewRegistry creates a registry holding the engine's built-in templates.
func NewRegistry() *Registry {
	engine := liquid.NewEngine()

	// {{ listing_name | default: "your business" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Registry{engine: engine, defs: builtinTemplates}
}

// Render produces the subject and HTML body for a template id. Unknown ids
// are an error: the step table and this registry must stay in sync.
func (r *Registry) Render(templateID string, payload map[string]interface{}) (subject, html string, err error) {
	c, err := r.compile(templateID)
	if err != nil {
		return "", "", err
	}
	subj, err := c.subject.Render(payload)
	if err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", templateID, err)
	}
	body, err := c.html.Render(payload)
	if err != nil {
		return "", "", fmt.Errorf("render %s body: %w", templateID, err)
	}
	return string(subj), string(body), nil
}

func (r *Registry) compile(templateID string) (*compiled, error) {
	if v, ok := r.cache.Load(templateID); ok {
		return v.(*compiled), nil
	}
	def, ok := r.defs[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", templateID)
	}
	subj, err := r.engine.ParseString(def.Subject)
	if err != nil {
		return nil, fmt.Errorf("parse %s subject: %w", templateID, err)
	}
	html, err := r.engine.ParseString(def.HTML)
	if err != nil {
		return nil, fmt.Errorf("parse %s body: %w", templateID, err)
	}
	c := &compiled{subject: subj, html: html}
	r.cache.Store(templateID, c)
	return c, nil
}

var builtinTemplates = map[string]templateDef{
	domain.TemplateClaimVerification: {
		Subject: `Confirm you own {{ listing_name | default: "your business" }}`,
		HTML: `<html><body style="font-family:Arial,sans-serif;">
<h2>Verify your listing</h2>
<p>Someone (hopefully you) asked to claim <strong>{{ listing_name | default: "this listing" }}</strong>.</p>
{% if message != "" %}<blockquote>{{ message }}</blockquote>{% endif %}
<p><a href="{{ verify_url }}">Confirm ownership</a></p>
<p>The link expires in {{ expires_hours }} hours. If you didn't request this, you can ignore this email; your listing is unchanged.</p>
</body></html>`,
	},
	domain.TemplateDay3CompleteProfile: {
		Subject: `Your listing for {{ listing_name | default: "your business" }} is live - make it yours`,
		HTML: `<html><body style="font-family:Arial,sans-serif;">
<p>{{ listing_name | default: "Your business" }} is live in the directory.</p>
<p>Claim it to add photos, hours and a description: <a href="{{ claim_url }}">claim your listing</a>.</p>
<p style="font-size:12px;color:#888;"><a href="{{ optout_url }}">Stop these emails</a></p>
</body></html>`,
	},
	domain.TemplateDay7TrafficUpdate: {
		Subject: `{{ view_count }} people viewed {{ listing_name | default: "your listing" }} recently`,
		HTML: `<html><body style="font-family:Arial,sans-serif;">
<p>{{ listing_name | default: "Your listing" }} was viewed {{ view_count }} times in the last month.</p>
<p>Those visitors see an unclaimed page. <a href="{{ claim_url }}">Claim it</a> to put your best foot forward.</p>
<p style="font-size:12px;color:#888;"><a href="{{ optout_url }}">Stop these emails</a></p>
</body></html>`,
	},
	domain.TemplateDay14UpgradeOffer: {
		Subject: `Get more from {{ listing_name | default: "your listing" }}`,
		HTML: `<html><body style="font-family:Arial,sans-serif;">
<p>Businesses on a paid plan get priority placement and lead analytics.</p>
<p><a href="{{ claim_url }}">Claim {{ listing_name | default: "your listing" }}</a> and pick a plan that fits.</p>
<p style="font-size:12px;color:#888;"><a href="{{ optout_url }}">Stop these emails</a></p>
</body></html>`,
	},
}
