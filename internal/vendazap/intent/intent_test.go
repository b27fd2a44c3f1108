package intent_test

import (
	"testing"

	"github.com/vendazap/vendazap/internal/vendazap/intent"
)

var productTerms = []string{"Progressiva Vegetal Bella Liss", "progressiva", "alisamento"}

func newClassifier() *intent.Classifier {
	return intent.New(productTerms)
}

func TestClassify_Table(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		text string
		want intent.Intent
	}{
		// Pure greetings (anchored match).
		{"oi", intent.Greeting},
		{"Oi!", intent.Greeting},
		{"olá", intent.Greeting},
		{"ola", intent.Greeting},
		{"Bom dia", intent.Greeting},
		{"boa noite...", intent.Greeting},
		{"opa", intent.Greeting},

		// Greeting word plus purchase signal: Buy must win.
		{"oi, quero comprar", intent.Buy},
		{"bom dia, pode me mandar o pix?", intent.Buy},

		// Buy.
		{"quero comprar a progressiva", intent.Buy},
		{"como faço pra finalizar?", intent.Buy},
		{"me manda o link", intent.Buy},
		{"vou querer 2", intent.Buy},

		// Price.
		{"quanto custa?", intent.Price},
		{"qual o valor?", intent.Price},
		{"tem desconto?", intent.Price},
		{"quanto fica com frete?", intent.Price}, // price outranks delivery

		// Delivery.
		{"qual o prazo de entrega?", intent.Delivery},
		{"chega em quantos dias?", intent.Delivery},
		{"vocês enviam pelos correios?", intent.Delivery},

		// Benefits.
		{"isso funciona mesmo?", intent.Benefits},
		{"tem formol?", intent.Benefits},
		{"como aplica?", intent.Benefits},

		// Product mention (synonym match).
		{"tem progressiva?", intent.ProductMention},
		{"vocês trabalham com alisamento?", intent.ProductMention},
		{"a Progressiva Vegetal Bella Liss serve em cabelo cacheado?", intent.ProductMention},

		// Catch-all.
		{"meu pedido veio errado", intent.Other},
		{"vocês atendem aos domingos?", intent.Other},
		{"", intent.Other},
		{"   ", intent.Other},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q): got %q, want %q", tt.text, got, tt.want)
		}
	}
}

// TestClassify_PriorityOrder pins the business ordering: a message matching
// several categories reports only the highest-priority one.
func TestClassify_PriorityOrder(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		text string
		want intent.Intent
	}{
		// buy + price → Buy
		{"quero comprar, quanto custa?", intent.Buy},
		// price + delivery → Price
		{"quanto custa e qual o prazo de entrega?", intent.Price},
		// delivery + benefits → Delivery
		{"a entrega demora? funciona mesmo?", intent.Delivery},
		// benefits + product mention → Benefits
		{"a progressiva funciona em cabelo tingido?", intent.Benefits},
		// price + product mention → Price
		{"qual o valor da progressiva?", intent.Price},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q): got %q, want %q", tt.text, got, tt.want)
		}
	}
}

// TestClassify_Total verifies the function returns a defined tag for
// arbitrary garbage input.
func TestClassify_Total(t *testing.T) {
	c := newClassifier()
	inputs := []string{"🙂🙂🙂", "asdfghjkl", "1234567890", "\n\t", "porque?"}
	for _, in := range inputs {
		got := c.Classify(in)
		switch got {
		case intent.Greeting, intent.Buy, intent.Price, intent.Delivery,
			intent.Benefits, intent.ProductMention, intent.Other:
		default:
			t.Errorf("Classify(%q) returned undefined intent %q", in, got)
		}
	}
}

// TestClassify_NoProductTerms verifies a classifier built without product
// terms never reports ProductMention.
func TestClassify_NoProductTerms(t *testing.T) {
	c := intent.New(nil)
	if got := c.Classify("tem progressiva?"); got != intent.Other {
		t.Errorf("got %q, want other", got)
	}
}
