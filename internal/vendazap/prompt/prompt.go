// Package prompt builds the ordered message list sent to the completion API:
// persona/product system message, intent-specific hint injections, bounded
// trailing history, and the raw inbound text as the final user turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/vendazap/vendazap/internal/vendazap/config"
	"github.com/vendazap/vendazap/internal/vendazap/history"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
)

// Message is one role-tagged entry in the completion request. Ephemeral:
// constructed per request, never persisted.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Placeholder is the literal token the checkout template carries before the
// resolved link is substituted in. The system prompt forbids the model from
// ever emitting it verbatim.
const Placeholder = "{LINK}"

// DefaultCTATemplate is the built-in checkout call-to-action wording.
// Content, not protocol: deployments override it freely.
const DefaultCTATemplate = "Para garantir o seu, é só finalizar por aqui: " + Placeholder + " — o pagamento é feito somente na entrega! 🛵"

// Assembler builds completion message lists for one persona/product pair.
// Static after construction; safe for concurrent use.
type Assembler struct {
	Persona config.Persona
	Product config.Product
	// CTATemplate is the checkout wording shown to the model. Empty selects
	// DefaultCTATemplate.
	CTATemplate string
}

// Assemble returns the ordered message list for one inbound message:
//
//  1. one system message (persona, tone, product facts, CTA instruction)
//  2. zero or more system hints keyed by the classified intent
//  3. the trailing bounded history, oldest first
//  4. the raw inbound text as the final user message
//
// The history slice is never mutated and no bounding happens here; the
// history store caps length upstream.
func (a *Assembler) Assemble(tag intent.Intent, turns []history.Turn, userText string) []Message {
	messages := make([]Message, 0, len(turns)+3)
	messages = append(messages, Message{Role: RoleSystem, Content: a.systemMessage()})

	if hint := a.hint(tag); hint != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: hint})
	}

	for _, turn := range turns {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}

	return append(messages, Message{Role: RoleUser, Content: userText})
}

// systemMessage renders the persona identity, tone directive, product
// description and checkout instructions as one system block.
func (a *Assembler) systemMessage() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Você é %s, vendedora da %s, atendendo clientes pelo WhatsApp direto de %s.\n",
		a.Persona.Name, a.Persona.Brand, a.Persona.City)
	sb.WriteString("Fale de forma natural, calorosa e direta, como uma vendedora experiente em conversa de WhatsApp. Mensagens curtas, sem parecer texto de propaganda.\n")

	if a.Persona.NeverRevealAutomation {
		sb.WriteString("Nunca diga que você é um robô, bot, assistente virtual ou inteligência artificial, em nenhuma circunstância.\n")
	}

	fmt.Fprintf(&sb, "Produto em oferta: %s.\n", a.Product.Name)
	if len(a.Product.Benefits) > 0 {
		fmt.Fprintf(&sb, "Benefícios: %s.\n", strings.Join(a.Product.Benefits, "; "))
	}
	if len(a.Product.Differentials) > 0 {
		fmt.Fprintf(&sb, "Diferenciais: %s.\n", strings.Join(a.Product.Differentials, "; "))
	}
	sb.WriteString(a.deliverySentence())
	sb.WriteString("O pagamento é feito somente quando o produto chega na casa do cliente, sem risco nenhum.\n")

	if url := a.Product.DefaultCheckoutURL(); url != "" {
		template := a.CTATemplate
		if template == "" {
			template = DefaultCTATemplate
		}
		fmt.Fprintf(&sb, "Quando o cliente decidir comprar, envie o link de compra usando este modelo: %q.\n",
			strings.ReplaceAll(template, Placeholder, url))
		fmt.Fprintf(&sb, "Nunca escreva o marcador %s literalmente; use sempre o link completo.\n", Placeholder)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// deliverySentence renders the promised delivery window, collapsing
// degenerate windows to a single figure.
func (a *Assembler) deliverySentence() string {
	d := a.Product.Delivery
	switch {
	case d.MaxDays <= 0:
		return ""
	case d.MinDays >= d.MaxDays:
		return fmt.Sprintf("A entrega leva até %d dias úteis.\n", d.MaxDays)
	default:
		return fmt.Sprintf("A entrega leva de %d a %d dias úteis.\n", d.MinDays, d.MaxDays)
	}
}

// hint returns the intent-specific system note injected to bias the model,
// or "" when the intent needs none.
func (a *Assembler) hint(tag intent.Intent) string {
	switch tag {
	case intent.ProductMention:
		return fmt.Sprintf(
			"O cliente mencionou %s. Responda tratando como produto de loja pronto para envio, não como serviço de salão.",
			a.Product.Name)
	case intent.Buy:
		return "O cliente demonstrou intenção de compra. Conduza direto para o fechamento do pedido, sem enrolação."
	case intent.Delivery:
		d := a.Product.Delivery
		if d.MaxDays > 0 {
			return fmt.Sprintf(
				"O cliente perguntou sobre entrega. Reforce o prazo de %d a %d dias úteis e o pagamento na entrega.",
				d.MinDays, d.MaxDays)
		}
		return "O cliente perguntou sobre entrega. Reforce que o pagamento é feito só na entrega."
	default:
		return ""
	}
}
