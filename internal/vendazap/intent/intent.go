// Package intent maps raw inbound text to a small closed set of intent tags
// via lexical matching.
//
// Classification is a total function: every input yields exactly one Intent,
// with Other as the catch-all. The rules live in one ordered table and the
// first match wins, making the priority explicit and testable. The ordering
// is business policy: purchase and pricing signals must never be masked by a
// lower-priority match.
package intent

import (
	"regexp"
	"strings"
)

// Intent is the classification tag for one inbound message. Derived per
// message, never persisted.
type Intent string

const (
	Greeting       Intent = "greeting"
	Buy            Intent = "buy"
	Price          Intent = "price"
	Delivery       Intent = "delivery"
	Benefits       Intent = "benefits"
	ProductMention Intent = "product_mention"
	Other          Intent = "other"
)

// greetingRe matches messages that are nothing but a greeting. Anchored on
// purpose: "oi" alone is a greeting, "oi, quero comprar" is a purchase with
// an incidental greeting word and must fall through to the Buy rule.
var greetingRe = regexp.MustCompile(
	`^(oi+|ol[aá]|opa|e a[ií]|eai|salve|bom dia|boa tarde|boa noite|tudo bem|td bem)[\s!.,…?]*$`,
)

var buyTerms = []string{
	"comprar", "compro", "quero pedir", "fazer o pedido", "fazer pedido",
	"fechar pedido", "fechar o pedido", "finalizar", "vou querer",
	"manda o link", "me envia o link", "me manda o link", "quero o link",
	"pode fechar", "pix",
}

var priceTerms = []string{
	"preço", "preco", "valor", "quanto custa", "quanto é", "quanto e",
	"quanto sai", "quanto tá", "quanto ta", "quanto fica", "custa",
	"promoção", "promocao", "desconto",
}

var deliveryTerms = []string{
	"entrega", "entregam", "prazo", "chega", "frete", "envio", "enviam",
	"correios", "demora", "quantos dias", "quando recebo",
}

var benefitTerms = []string{
	"funciona", "resultado", "benefício", "beneficio", "vale a pena",
	"é bom", "e bom mesmo", "como usa", "como aplica", "como funciona",
	"composição", "composicao", "tem formol", "estraga o cabelo",
}

// rule pairs an Intent with its predicate. Evaluated strictly in slice order.
type rule struct {
	intent Intent
	match  func(text string) bool
}

// Classifier classifies inbound text against the fixed rule table.
// Safe for concurrent use; it holds no mutable state after construction.
type Classifier struct {
	rules []rule
}

// New builds a Classifier. productTerms feeds the ProductMention rule and
// should contain the product name plus its synonyms; matching is
// case-insensitive substring.
func New(productTerms []string) *Classifier {
	terms := make([]string, 0, len(productTerms))
	for _, t := range productTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}

	return &Classifier{rules: []rule{
		{Greeting, func(s string) bool { return greetingRe.MatchString(s) }},
		{Buy, containsAny(buyTerms)},
		{Price, containsAny(priceTerms)},
		{Delivery, containsAny(deliveryTerms)},
		{Benefits, containsAny(benefitTerms)},
		{ProductMention, containsAny(terms)},
	}}
}

// Classify returns the highest-priority intent whose predicate matches text.
// A message may lexically match several categories; only the first rule in
// table order is reported.
func (c *Classifier) Classify(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Other
	}
	for _, r := range c.rules {
		if r.match(t) {
			return r.intent
		}
	}
	return Other
}

// containsAny builds a predicate that reports whether the text contains any
// of the given lowercase terms.
func containsAny(terms []string) func(string) bool {
	return func(text string) bool {
		for _, term := range terms {
			if strings.Contains(text, term) {
				return true
			}
		}
		return false
	}
}
