// Package polish turns the raw model completion into the message that is
// actually sent: a fixed, ordered sequence of deterministic text transforms
// that keeps replies short, on-tone and sales-oriented.
//
// The pipeline, in order:
//
//  1. strip premature checkout-link offers (unless the intent is Buy)
//  2. remove generic closing questions the model loves to tack on
//  3. cap the sentence count
//  4. cap pictographic emoji at one
//  5. append an intent-aware closing question when the reply doesn't
//     already end in ? or !
//  6. occasionally prepend a light opener
//
// Polish does no I/O and mutates nothing; given the same random source it is
// fully deterministic, so every transform is unit-testable in isolation.
package polish

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/vendazap/vendazap/internal/vendazap/intent"
)

// DefaultMaxSentences caps the polished reply length when unconfigured.
const DefaultMaxSentences = 2

// linkOfferRe matches sentences in which the model offers to send a checkout
// or payment link. Outside an explicit purchase intent these offers read as
// pushy and, worse, duplicate the dispatcher's own CTA message.
var linkOfferRe = regexp.MustCompile(
	`(?i)(posso|quer que eu|vou|já)\s+(te\s+)?(mandar|enviar|passar|mando|envio|passo)[^.!?]*link` +
		`|segue\s+o\s+link` +
		`|quer\s+o\s+link` +
		`|link\s+de\s+(compra|pagamento)`,
)

// genericClosers are stock closing questions removed wherever they appear.
// Near-exact match: case-insensitive, optional trailing punctuation.
var genericClosers = []*regexp.Regexp{
	closerRe(`posso (te )?ajudar (com|em) (mais )?(alguma coisa|algo( mais)?)`),
	closerRe(`há algo mais em que (eu )?posso ajudar`),
	closerRe(`se precisar de (algo|mais informações), (é só chamar|estou à disposição)`),
	closerRe(`estou à disposição( para( te)? ajudar)?`),
	closerRe(`qualquer( outra)? dúvida,? (é só|pode) (chamar|perguntar)`),
}

func closerRe(body string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + body + `[.!?]*\s*`)
}

// sentenceRe captures one complete sentence: text up to sentence-ending
// punctuation, including closing quotes/parens and trailing whitespace.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*\s*`)

// intentClosers maps an intent to its deterministic closing question,
// checked in priority order by closerFor.
var intentClosers = map[intent.Intent]string{
	intent.Delivery:       "Quer que eu confirme o prazo certinho para a sua cidade?",
	intent.Benefits:       "Quer que eu te explique como usar aí no seu cabelo?",
	intent.Price:          "Você pensa em 1, 2 ou 3 unidades?",
	intent.ProductMention: "Quer saber o valor dela?",
}

// closerPool is the generic fallback pool, drawn at random. Content, not
// protocol.
var closerPool = []string{
	"Posso te passar o valor?",
	"Quer saber mais detalhes?",
	"Me conta: o que você quer saber primeiro?",
}

// openerPool holds the light opener phrases occasionally prepended.
var openerPool = []string{
	"Ótima pergunta!",
	"Boa!",
	"Perfeito!",
}

// greetingStarts blocks the opener when the reply already greets.
var greetingStarts = []string{
	"oi", "olá", "ola", "opa", "bom dia", "boa tarde", "boa noite", "tudo bem",
}

// Config configures a Polisher.
type Config struct {
	// MaxSentences caps the reply length. Policy range is 2–3;
	// ≤ 0 selects DefaultMaxSentences.
	MaxSentences int
	// OpenerProbability is the chance ∈ [0,1] of prepending an opener.
	OpenerProbability float64
	// Rand supplies randomness for the generic closer and the opener roll.
	// Nil selects a time-seeded source; tests inject a fixed seed.
	Rand *rand.Rand
}

// Polisher applies the transform pipeline. Safe for concurrent use.
type Polisher struct {
	maxSentences int
	openerProb   float64

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Polisher with defaults applied.
func New(cfg Config) *Polisher {
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = DefaultMaxSentences
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Polisher{
		maxSentences: cfg.MaxSentences,
		openerProb:   cfg.OpenerProbability,
		rng:          rng,
	}
}

// Polish runs the full transform pipeline over the raw completion.
// Non-empty input always yields non-empty output.
func (p *Polisher) Polish(raw, userText string, tag intent.Intent) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return text
	}

	if tag != intent.Buy {
		text = stripLinkOffers(text)
	}
	text = removeGenericClosers(text)
	text = capSentences(text, p.maxSentences)
	text = capEmoji(text, 1)

	text = strings.TrimSpace(text)
	if text == "" {
		// Every transform ate the whole reply; fall back to the trimmed
		// original rather than sending nothing.
		text = strings.TrimSpace(raw)
	}

	if !strings.HasSuffix(text, "?") && !strings.HasSuffix(text, "!") {
		text += " " + p.closerFor(tag)
	}

	if p.openerProb > 0 && !startsWithGreeting(text) && p.roll() < p.openerProb {
		text = p.pick(openerPool) + " " + text
	}

	return text
}

// stripLinkOffers drops every sentence that offers to send a checkout link.
// When that would erase the whole reply the text is returned untouched.
func stripLinkOffers(text string) string {
	spans := sentenceRe.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		// Single unterminated sentence; nothing safe to cut.
		return text
	}

	kept := make([]string, 0, len(spans))
	for _, span := range spans {
		if s := text[span[0]:span[1]]; !linkOfferRe.MatchString(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return text
	}
	// Preserve any unterminated tail past the last matched sentence. The
	// matcher skips bare punctuation runs between sentences, so the tail must
	// come from the last match's end offset, not from summed match lengths.
	tail := text[spans[len(spans)-1][1]:]
	if tail != "" && !linkOfferRe.MatchString(tail) {
		kept = append(kept, tail)
	}
	return strings.TrimSpace(strings.Join(kept, ""))
}

// removeGenericClosers deletes stock closing questions anywhere in the text.
func removeGenericClosers(text string) string {
	for _, re := range genericClosers {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// capSentences truncates text to at most max complete sentences. Text in
// which the splitter finds no complete sentence is returned unmodified.
func capSentences(text string, max int) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 || len(sentences) <= max {
		return text
	}
	return strings.TrimSpace(strings.Join(sentences[:max], ""))
}

// closerFor returns the closing question for the intent: deterministic per
// intent, random from the generic pool otherwise. Priority order is
// Delivery > Benefits > Price > ProductMention > generic.
func (p *Polisher) closerFor(tag intent.Intent) string {
	if closer, ok := intentClosers[tag]; ok {
		return closer
	}
	return p.pick(closerPool)
}

// startsWithGreeting reports whether the reply already opens with a greeting
// word, in which case an opener would read doubled.
func startsWithGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, g := range greetingStarts {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

func (p *Polisher) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

func (p *Polisher) pick(pool []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))]
}
