// Package engine orchestrates the reply pipeline for each inbound message:
// load history, classify intent, assemble the prompt, call the completion
// gateway, polish the reply, send it, dispatch the checkout follow-up, and
// persist the updated history.
//
// Every collaborator sits behind an explicit field on the Engine; there are
// no package-level singletons. Failures below the engine are degraded in
// place (empty history, skipped CTA); only the engine decides user-visible
// behaviour, and no error ever escapes a per-message task.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/vendazap/vendazap/common/trace"
	"github.com/vendazap/vendazap/internal/vendazap/checkout"
	"github.com/vendazap/vendazap/internal/vendazap/history"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
	"github.com/vendazap/vendazap/internal/vendazap/polish"
	"github.com/vendazap/vendazap/internal/vendazap/prompt"
)

// ApologyMessage is the single user-visible fallback sent when the pipeline
// fails after a message was accepted. Never partial replies, always this.
const ApologyMessage = "Desculpa, tive um probleminha aqui agora 🙏 Pode me mandar sua mensagem de novo?"

// slowDownMessage is sent when a conversation exceeds the rate limit.
const slowDownMessage = "Calma, vou te responder rapidinho! Me manda uma mensagem de cada vez, tá? 😉"

// typing-indicator pacing: cosmetic only, proportional to reply length.
const (
	typingPerRune = 35 * time.Millisecond
	typingMax     = 3 * time.Second
)

// Inbound is one message event received from the chat transport.
type Inbound struct {
	ConversationID string
	Text           string
	// FromSelf marks echoes of our own outbound messages.
	FromSelf bool
	// Group marks group-chat events; the bot only answers direct chats.
	Group bool
}

// Sender is the outbound capability the engine needs from the transport.
type Sender interface {
	// Send delivers one text message to a conversation.
	Send(ctx context.Context, conversationID, text string) error
	// Typing signals a composing presence for roughly d. Best-effort and
	// purely cosmetic; implementations log and move on when it fails.
	Typing(ctx context.Context, conversationID string, d time.Duration)
}

// HistoryStore is the minimal history surface the engine consumes.
// *history.Store satisfies it; tests substitute an in-memory fake.
type HistoryStore interface {
	Load(ctx context.Context, conversationID string) []history.Turn
	Save(ctx context.Context, conversationID string, turns []history.Turn)
}

// Completer produces one completion for an assembled message list.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Config wires an Engine. Sender, Classifier, Assembler, Completer,
// Polisher and Checkout are required; History and Limiter may be nil to
// disable the corresponding feature.
type Config struct {
	History    HistoryStore
	Classifier *intent.Classifier
	Assembler  *prompt.Assembler
	Completer  Completer
	Polisher   *polish.Polisher
	Checkout   *checkout.Dispatcher
	Sender     Sender
	Limiter    *RateLimiter
}

// Engine runs the conversation pipeline. Construct once at startup with New
// and share; all fields are read-only afterwards.
type Engine struct {
	cfg Config

	wg sync.WaitGroup
}

// New returns an Engine over the given collaborators.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run consumes inbound events until the channel closes or ctx is cancelled,
// handling each event in its own goroutine. It returns after all in-flight
// handlers have finished.
func (e *Engine) Run(ctx context.Context, events <-chan Inbound) {
	defer e.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.Handle(ctx, ev)
			}()
		}
	}
}

// Handle processes one inbound event through the full pipeline. Exported so
// tests and debug tooling can drive single events synchronously.
func (e *Engine) Handle(ctx context.Context, ev Inbound) {
	// Last-resort net: a panic in one message task must never take the
	// process down with it.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: panic while handling message",
				"conversation", ev.ConversationID, "panic", r)
		}
	}()

	// Discarded before any work: own echoes, group chats, empty text.
	if ev.FromSelf || ev.Group {
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	ctx = trace.WithID(ctx, trace.NewID())
	log := slog.With("trace", trace.FromContext(ctx), "conversation", ev.ConversationID)

	if e.cfg.Limiter != nil && !e.cfg.Limiter.Allow(ev.ConversationID) {
		log.Warn("engine: conversation rate-limited")
		if err := e.cfg.Sender.Send(ctx, ev.ConversationID, slowDownMessage); err != nil {
			log.Warn("engine: slow-down notice failed", "err", err)
		}
		return
	}

	var turns []history.Turn
	if e.cfg.History != nil {
		turns = e.cfg.History.Load(ctx, ev.ConversationID)
	}

	tag := e.cfg.Classifier.Classify(text)
	log.Debug("engine: message classified", "intent", tag, "history_turns", len(turns))

	messages := e.cfg.Assembler.Assemble(tag, turns, text)

	raw, err := e.cfg.Completer.Complete(ctx, messages)
	if err != nil {
		log.Warn("engine: completion failed, sending apology", "err", err)
		e.apologize(ctx, log, ev.ConversationID)
		return
	}

	reply := e.cfg.Polisher.Polish(raw, text, tag)
	if reply == "" {
		log.Warn("engine: polished reply empty, sending apology")
		e.apologize(ctx, log, ev.ConversationID)
		return
	}

	e.cfg.Sender.Typing(ctx, ev.ConversationID, typingDuration(reply))

	if err := e.cfg.Sender.Send(ctx, ev.ConversationID, reply); err != nil {
		// Not retried here and no apology either: if the transport cannot
		// deliver the reply it cannot deliver an apology.
		log.Error("engine: reply send failed", "err", err)
		return
	}

	if followUp, ok := e.cfg.Checkout.Follow(reply, tag); ok {
		if err := e.cfg.Sender.Send(ctx, ev.ConversationID, followUp); err != nil {
			log.Warn("engine: checkout follow-up send failed", "err", err)
		}
	}

	if e.cfg.History != nil {
		turns = append(turns,
			history.Turn{Role: history.RoleUser, Content: text},
			history.Turn{Role: history.RoleAssistant, Content: reply},
		)
		e.cfg.History.Save(ctx, ev.ConversationID, turns)
	}

	log.Info("engine: message answered", "intent", tag, "reply_len", len(reply))
}

// apologize attempts the single user-visible fallback send. History is not
// persisted for failed turns; the user's message is lost from context, an
// accepted trade-off for a best-effort store.
func (e *Engine) apologize(ctx context.Context, log *slog.Logger, conversationID string) {
	if err := e.cfg.Sender.Send(ctx, conversationID, ApologyMessage); err != nil {
		log.Error("engine: apology send failed", "err", err)
	}
}

// typingDuration scales the cosmetic composing signal with reply length.
func typingDuration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * typingPerRune
	if d > typingMax {
		d = typingMax
	}
	return d
}
