package prompt_test

import (
	"strings"
	"testing"

	"github.com/vendazap/vendazap/internal/vendazap/config"
	"github.com/vendazap/vendazap/internal/vendazap/history"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
	"github.com/vendazap/vendazap/internal/vendazap/prompt"
)

func newAssembler() *prompt.Assembler {
	return &prompt.Assembler{
		Persona: config.DefaultPersona(),
		Product: config.DefaultProduct(),
	}
}

func TestAssemble_Order(t *testing.T) {
	a := newAssembler()
	turns := []history.Turn{
		{Role: history.RoleUser, Content: "oi"},
		{Role: history.RoleAssistant, Content: "Oi! Tudo bem?"},
	}

	msgs := a.Assemble(intent.Price, turns, "quanto custa?")

	if len(msgs) != 4 {
		t.Fatalf("message count: got %d, want 4", len(msgs))
	}
	if msgs[0].Role != prompt.RoleSystem {
		t.Errorf("first message role: got %q, want system", msgs[0].Role)
	}
	if msgs[1].Role != prompt.RoleUser || msgs[1].Content != "oi" {
		t.Errorf("history not in position 1: %+v", msgs[1])
	}
	if msgs[2].Role != prompt.RoleAssistant {
		t.Errorf("history not in position 2: %+v", msgs[2])
	}
	last := msgs[len(msgs)-1]
	if last.Role != prompt.RoleUser || last.Content != "quanto custa?" {
		t.Errorf("final message must be the raw user text: %+v", last)
	}
}

func TestAssemble_SystemMessageContent(t *testing.T) {
	a := newAssembler()
	msgs := a.Assemble(intent.Other, nil, "olá")
	system := msgs[0].Content

	for _, want := range []string{
		a.Persona.Name,
		a.Persona.Brand,
		a.Persona.City,
		a.Product.Name,
		"dias úteis",
		"pagamento",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system message missing %q", want)
		}
	}
	if !strings.Contains(system, "robô") {
		t.Error("never-reveal directive missing despite NeverRevealAutomation")
	}
	// The CTA instruction must show the resolved URL, never the placeholder.
	if !strings.Contains(system, a.Product.DefaultCheckoutURL()) {
		t.Error("CTA instruction missing resolved checkout URL")
	}
}

func TestAssemble_NoRevealDirectiveWhenDisabled(t *testing.T) {
	a := newAssembler()
	a.Persona.NeverRevealAutomation = false
	system := a.Assemble(intent.Other, nil, "olá")[0].Content
	if strings.Contains(system, "robô") {
		t.Error("reveal directive present despite NeverRevealAutomation=false")
	}
}

func TestAssemble_NoCTAWithoutCheckoutURL(t *testing.T) {
	a := newAssembler()
	a.Product.Tiers = nil
	system := a.Assemble(intent.Buy, nil, "quero comprar")[0].Content
	if strings.Contains(system, prompt.Placeholder) {
		t.Error("placeholder rule present without a checkout URL")
	}
	if strings.Contains(system, "link de compra") {
		t.Error("CTA instruction present without a checkout URL")
	}
}

func TestAssemble_ProductMentionHint(t *testing.T) {
	a := newAssembler()
	msgs := a.Assemble(intent.ProductMention, nil, "tem progressiva?")

	if len(msgs) != 3 {
		t.Fatalf("message count: got %d, want 3 (system, hint, user)", len(msgs))
	}
	hint := msgs[1]
	if hint.Role != prompt.RoleSystem {
		t.Errorf("hint role: got %q, want system", hint.Role)
	}
	if !strings.Contains(hint.Content, "produto de loja") {
		t.Errorf("hint missing retail clarification: %q", hint.Content)
	}
}

func TestAssemble_NoHintForPrice(t *testing.T) {
	a := newAssembler()
	msgs := a.Assemble(intent.Price, nil, "quanto custa?")
	if len(msgs) != 2 {
		t.Fatalf("price intent must inject no hint: got %d messages, want 2", len(msgs))
	}
}

func TestAssemble_DoesNotMutateHistory(t *testing.T) {
	a := newAssembler()
	turns := []history.Turn{{Role: history.RoleUser, Content: "original"}}
	a.Assemble(intent.Other, turns, "x")
	if turns[0].Content != "original" || len(turns) != 1 {
		t.Errorf("history mutated: %+v", turns)
	}
}

func TestAssemble_PlaceholderForbiddenRule(t *testing.T) {
	a := newAssembler()
	system := a.Assemble(intent.Buy, nil, "quero")[0].Content
	if !strings.Contains(system, "Nunca escreva o marcador") {
		t.Error("placeholder-forbidden rule missing when checkout URL exists")
	}
}
