// Package app assembles the bot: configuration, the WhatsApp transport, the
// conversation engine and the optional health/QR HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendazap/vendazap/internal/vendazap/checkout"
	"github.com/vendazap/vendazap/internal/vendazap/config"
	"github.com/vendazap/vendazap/internal/vendazap/engine"
	"github.com/vendazap/vendazap/internal/vendazap/history"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
	"github.com/vendazap/vendazap/internal/vendazap/llm"
	"github.com/vendazap/vendazap/internal/vendazap/polish"
	"github.com/vendazap/vendazap/internal/vendazap/prompt"
	"github.com/vendazap/vendazap/internal/vendazap/whatsapp"
)

// App is the assembled bot.
type App struct {
	cfg       *config.Config
	transport *whatsapp.Client
	engine    *engine.Engine
	history   *history.Store
	health    *HealthServer
}

// New wires every subsystem from the configuration snapshot. History and the
// HTTP surface degrade to disabled rather than failing startup; only a broken
// session store is fatal.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	transport, err := whatsapp.New(ctx, whatsapp.Config{SessionDBPath: cfg.SessionDBPath})
	if err != nil {
		return nil, fmt.Errorf("app: transport: %w", err)
	}

	var hist *history.Store
	var engHistory engine.HistoryStore
	if cfg.History.Enabled {
		hist, err = history.NewRedis(ctx, cfg.History.RedisURL, cfg.History.MaxTurns, cfg.History.TTL)
		if err != nil {
			slog.Warn("app: history store unavailable, answering without context", "err", err)
		} else {
			engHistory = hist
		}
	} else {
		slog.Info("app: conversation history disabled")
	}

	classifier := intent.New(append([]string{cfg.Product.Name}, cfg.Product.Synonyms...))

	var limiter *engine.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = engine.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	eng := engine.New(engine.Config{
		History:    engHistory,
		Classifier: classifier,
		Assembler:  &prompt.Assembler{Persona: cfg.Persona, Product: cfg.Product},
		Completer: llm.New(llm.Config{
			APIKey:          cfg.OpenAI.APIKey,
			BaseURL:         cfg.OpenAI.BaseURL,
			Model:           cfg.OpenAI.Model,
			Temperature:     cfg.OpenAI.Temperature,
			TopP:            cfg.OpenAI.TopP,
			PresencePenalty: cfg.OpenAI.PresencePenalty,
			Timeout:         cfg.OpenAI.Timeout,
		}),
		Polisher: polish.New(polish.Config{
			MaxSentences:      cfg.Reply.MaxSentences,
			OpenerProbability: cfg.Reply.OpenerProbability,
		}),
		Checkout: checkout.New(cfg.Product, ""),
		Sender:   transport,
		Limiter:  limiter,
	})

	var health *HealthServer
	if cfg.HTTPAddr != "" {
		health = NewHealthServer(cfg.HTTPAddr, transport, classifier)
	}

	return &App{
		cfg:       cfg,
		transport: transport,
		engine:    eng,
		history:   hist,
		health:    health,
	}, nil
}

// Run connects the transport and pumps inbound messages through the engine
// until SIGINT/SIGTERM. It returns after in-flight replies have drained.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.health != nil {
		if err := a.health.Start(); err != nil {
			slog.Warn("app: health server failed to start, continuing without it", "err", err)
		}
	}

	if err := a.transport.Start(ctx); err != nil {
		return fmt.Errorf("app: start transport: %w", err)
	}
	slog.Info("app: transport started", "product", a.cfg.Product.Name, "persona", a.cfg.Persona.Name)

	events := make(chan engine.Inbound)
	go func() {
		defer close(events)
		for msg := range a.transport.Messages() {
			select {
			case events <- engine.Inbound{
				ConversationID: msg.ConversationID,
				Text:           msg.Text,
				FromSelf:       msg.FromSelf,
				Group:          msg.Group,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	engineDone := make(chan struct{})
	go func() {
		a.engine.Run(ctx, events)
		close(engineDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("app: shutting down", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("app: context cancelled, shutting down")
	}

	cancel()
	<-engineDone
	return nil
}

// Stop releases the transport, the HTTP surface and the history connection.
func (a *App) Stop() {
	a.transport.Stop()
	if a.health != nil {
		a.health.Stop()
	}
	if a.history != nil {
		a.history.Close()
	}
}
