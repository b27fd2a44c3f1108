// Package whatsapp wraps the whatsmeow client behind the small transport
// surface the rest of the bot needs: a channel of inbound text messages,
// Send, a composing signal, and QR pairing state for the HTTP surface.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/vendazap/vendazap/common/retry"
)

// Message is one inbound text message, already reduced to the fields the
// conversation pipeline cares about.
type Message struct {
	ConversationID string
	Text           string
	PushName       string
	FromSelf       bool
	Group          bool
}

// Config holds the transport configuration.
type Config struct {
	// SessionDBPath is the SQLite file holding the pairing session and
	// device keys. Deleting it forces a new QR pairing.
	SessionDBPath string
}

// Client wraps a whatsmeow client plus pairing state.
type Client struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	messages  chan Message

	mu          sync.Mutex
	qrPNG       []byte
	ready       bool
	connectedAt time.Time
	closed      bool
}

// New opens the session store and builds the client. The device session is
// loaded from SessionDBPath when one exists; otherwise Start will run the
// QR pairing flow.
func New(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", cfg.SessionDBPath)
	container, err := sqlstore.New(ctx, "sqlite", dsn, newLogAdapter("session"))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}

	c := &Client{
		client:    whatsmeow.NewClient(device, newLogAdapter("client")),
		container: container,
		messages:  make(chan Message, 64),
	}
	c.client.AddEventHandler(c.handleEvent)
	return c, nil
}

// Messages returns the inbound message channel. It is closed by Stop.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Start connects to WhatsApp. When no session exists yet, the pairing QR is
// rendered on stdout and kept as a PNG for the HTTP surface until the scan
// completes. Start returns once the connection attempt is underway;
// readiness is reported via Ready.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("whatsapp: qr channel: %w", err)
		}
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		go c.pairLoop(qrChan)
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}
	return nil
}

// pairLoop consumes QR events until pairing settles one way or the other.
func (c *Client) pairLoop(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			slog.Info("whatsapp: scan the QR code below to pair")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			png, err := qrcode.Encode(evt.Code, qrcode.Medium, 256)
			if err != nil {
				slog.Warn("whatsapp: qr png render failed", "err", err)
				png = nil
			}
			c.mu.Lock()
			c.qrPNG = png
			c.mu.Unlock()
		case "success":
			slog.Info("whatsapp: pairing complete")
		default:
			// timeout, err-* and friends; a fresh scan needs a restart.
			slog.Warn("whatsapp: pairing ended", "event", evt.Event)
		}
	}
	c.mu.Lock()
	c.qrPNG = nil
	c.mu.Unlock()
}

// Stop disconnects and closes the message channel.
func (c *Client) Stop() {
	c.client.Disconnect()
	c.closeMessages()
}

// closeMessages closes the inbound channel exactly once. Guarded by the same
// mutex as the delivery path: whatsmeow may still dispatch a buffered message
// event while Disconnect is in flight, and a send on a closed channel panics.
func (c *Client) closeMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.messages)
	}
}

// Send delivers one text message to a conversation, retrying once on
// transient transport failures.
func (c *Client) Send(ctx context.Context, conversationID, text string) error {
	jid, err := types.ParseJID(conversationID)
	if err != nil {
		return fmt.Errorf("whatsapp: bad conversation id %q: %w", conversationID, err)
	}

	msg := &waE2E.Message{Conversation: proto.String(text)}
	err = retry.Do(ctx, retry.DefaultConfig, func() error {
		_, sendErr := c.client.SendMessage(ctx, jid, msg)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", conversationID, err)
	}
	return nil
}

// Typing shows the composing indicator for roughly d, then clears it.
// Presence failures are cosmetic and only logged.
func (c *Client) Typing(ctx context.Context, conversationID string, d time.Duration) {
	jid, err := types.ParseJID(conversationID)
	if err != nil {
		return
	}
	if err := c.client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaText); err != nil {
		slog.Debug("whatsapp: composing presence failed", "err", err)
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	if err := c.client.SendChatPresence(ctx, jid, types.ChatPresencePaused, types.ChatPresenceMediaText); err != nil {
		slog.Debug("whatsapp: paused presence failed", "err", err)
	}
}

// Ready reports whether the client holds a live, authenticated connection.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// ConnectedAt returns when the current connection was established, zero when
// not connected yet.
func (c *Client) ConnectedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedAt
}

// QRPNG returns the current pairing QR as PNG bytes, or nil when no pairing
// is pending.
func (c *Client) QRPNG() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qrPNG
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		text := extractText(v.Message)
		if text == "" {
			return
		}
		msg := Message{
			ConversationID: v.Info.Chat.String(),
			Text:           text,
			PushName:       v.Info.PushName,
			FromSelf:       v.Info.IsFromMe,
			Group:          v.Info.IsGroup,
		}
		c.deliver(msg)
	case *events.Connected:
		c.mu.Lock()
		c.ready = true
		c.connectedAt = time.Now()
		c.qrPNG = nil
		c.mu.Unlock()
		slog.Info("whatsapp: connected")
	case *events.Disconnected:
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		slog.Warn("whatsapp: disconnected, client will reconnect")
	case *events.LoggedOut:
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		slog.Error("whatsapp: logged out remotely, delete the session file and re-pair",
			"reason", v.Reason)
	}
}

// deliver hands one inbound message to the pipeline without ever blocking
// the whatsmeow event loop. Messages arriving after Stop are discarded.
func (c *Client) deliver(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.messages <- msg:
	default:
		// The pipeline is saturated; dropping beats blocking the
		// whatsmeow event loop.
		slog.Warn("whatsapp: inbound queue full, dropping message",
			"conversation", msg.ConversationID)
	}
}

// extractText pulls the plain text out of the message shapes the bot
// answers: plain conversations and extended text (replies, link previews).
// Anything else (media, stickers, reactions) yields "".
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	return msg.GetExtendedTextMessage().GetText()
}
