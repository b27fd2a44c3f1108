// Package checkout decides whether a follow-up checkout-link message must be
// sent after the primary reply, and renders it from the configured CTA
// template.
package checkout

import (
	"strings"

	"github.com/vendazap/vendazap/internal/vendazap/config"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
	"github.com/vendazap/vendazap/internal/vendazap/prompt"
)

// FallbackURL is used when the catalog entry carries no checkout link at
// all. Better a generic page than a buying customer with nowhere to go.
const FallbackURL = "https://pagamento.bellaliss.com.br/checkout"

// urlMarkers are the substrings that mean "this reply already carries a
// link"; a second link message on top of one would read as spam.
var urlMarkers = []string{"http://", "https://", "wa.me/", "www."}

// Dispatcher renders the follow-up CTA message for one product.
// Static after construction; safe for concurrent use.
type Dispatcher struct {
	product  config.Product
	template string
}

// New returns a Dispatcher for the product. An empty template selects
// prompt.DefaultCTATemplate so the dispatcher and the system prompt always
// describe the same wording.
func New(product config.Product, template string) *Dispatcher {
	if template == "" {
		template = prompt.DefaultCTATemplate
	}
	return &Dispatcher{product: product, template: template}
}

// Follow returns the follow-up checkout message for one answered inbound
// event, and whether it should be sent at all.
//
// It fires only when the intent is Buy or Price and the polished reply does
// not already contain a URL. The returned message is a second, independent
// outbound send; the recipient sees it right after the primary reply.
func (d *Dispatcher) Follow(polishedReply string, tag intent.Intent) (string, bool) {
	if tag != intent.Buy && tag != intent.Price {
		return "", false
	}
	if ContainsURL(polishedReply) {
		return "", false
	}

	url := d.product.DefaultCheckoutURL()
	if url == "" {
		url = FallbackURL
	}
	return strings.ReplaceAll(d.template, prompt.Placeholder, url), true
}

// ContainsURL reports whether text already carries a link.
func ContainsURL(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range urlMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
