// Package config resolves the process-lifetime configuration snapshot:
// completion API credentials and sampling, persona, product catalog entry,
// history settings and feature toggles.
//
// Everything is resolved exactly once at startup. The returned Config is
// treated as immutable by every other package; nothing here is re-validated
// per message.
package config

import (
	"log/slog"
	"time"

	"github.com/vendazap/vendazap/common/environment"
	"github.com/vendazap/vendazap/common/redact"
)

// apiKeyCandidates is the prioritized list of environment variable names
// scanned for the completion API key. The misspelled entries are real names
// seen in deployed .env files; scanning them keeps a fat-fingered rename from
// silently taking the bot offline.
var apiKeyCandidates = []string{
	"OPENAI_API_KEY", // correct name
	"OPENAI_API_KEI", // observed typo
	"OPENAI_APIKEY",
	"OPEN_AI_API_KEY",
}

// OpenAI holds the completion API settings. Sampling parameters are fixed
// per deployment, not per message.
type OpenAI struct {
	// APIKey is the bearer token. May be empty: startup proceeds and the
	// gateway fails per-message until a key is configured.
	APIKey string
	// KeySource is the environment variable name the key was read from.
	KeySource string
	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string
	// Model is the chat model identifier.
	Model string

	Temperature     float64
	TopP            float64
	PresencePenalty float64

	// Timeout bounds each completion HTTP call.
	Timeout time.Duration
}

// History holds the conversation-log settings.
type History struct {
	// Enabled toggles the Redis-backed log. When false the bot answers
	// every message without prior context.
	Enabled  bool
	RedisURL string
	// MaxTurns caps how many trailing turns are kept per conversation.
	MaxTurns int
	// TTL expires a conversation log this long after its last write.
	// Zero means no expiry.
	TTL time.Duration
}

// Reply holds the polishing knobs.
type Reply struct {
	// MaxSentences caps the polished reply length (policy: 2 or 3).
	MaxSentences int
	// OpenerProbability is the chance of prepending a light opener phrase.
	OpenerProbability float64
}

// Config is the immutable configuration snapshot for the process lifetime.
type Config struct {
	OpenAI  OpenAI
	Persona Persona
	Product Product
	History History
	Reply   Reply

	// RateLimitPerMinute caps inbound messages answered per conversation
	// per minute. Zero disables the limit.
	RateLimitPerMinute int

	// HTTPAddr is the listen address of the health/QR server.
	HTTPAddr string
	// SessionDBPath is the SQLite file holding the WhatsApp session.
	SessionDBPath string
}

// Load builds the configuration snapshot from the environment and the
// optional catalog document at CATALOG_PATH.
//
// Load never fails: a missing or malformed catalog degrades to the built-in
// persona and product with a logged warning, and a missing API key is only
// an error at the point a completion is attempted.
func Load() *Config {
	apiKey, keySource := environment.FirstString(apiKeyCandidates...)
	if apiKey == "" {
		slog.Warn("config: no completion API key found in environment",
			"candidates", apiKeyCandidates)
	} else {
		slog.Info("config: completion API key loaded",
			"var", keySource, "prefix", redact.Preview(apiKey))
	}

	persona, product := resolveCatalog(
		environment.StringOr("CATALOG_PATH", ""),
		environment.StringOr("PRODUCT_KEY", ""),
	)

	return &Config{
		OpenAI: OpenAI{
			APIKey:          apiKey,
			KeySource:       keySource,
			BaseURL:         environment.StringOr("OPENAI_BASE_URL", ""),
			Model:           environment.StringOr("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:     environment.FloatOr("OPENAI_TEMPERATURE", 0.8),
			TopP:            environment.FloatOr("OPENAI_TOP_P", 0.95),
			PresencePenalty: environment.FloatOr("OPENAI_PRESENCE_PENALTY", 0.6),
			Timeout:         environment.DurationOr("OPENAI_TIMEOUT", 30*time.Second),
		},
		Persona: persona,
		Product: product,
		History: History{
			Enabled:  environment.BoolOr("HISTORY_ENABLED", true),
			RedisURL: environment.StringOr("REDIS_URL", "redis://localhost:6379/0"),
			MaxTurns: environment.IntOr("HISTORY_MAX_TURNS", 24),
			TTL:      time.Duration(environment.IntOr("HISTORY_TTL_SECONDS", 72*3600)) * time.Second,
		},
		Reply: Reply{
			MaxSentences:      clampSentences(environment.IntOr("REPLY_MAX_SENTENCES", 2)),
			OpenerProbability: environment.FloatOr("REPLY_OPENER_PROBABILITY", 0.3),
		},
		RateLimitPerMinute: environment.IntOr("RATE_LIMIT_PER_MINUTE", 10),
		HTTPAddr:           environment.StringOr("HTTP_ADDR", ":3000"),
		SessionDBPath:      environment.StringOr("SESSION_DB_PATH", "./vendazap.db"),
	}
}

// clampSentences keeps the sentence cap inside the supported policy range.
func clampSentences(n int) int {
	if n < 2 {
		return 2
	}
	if n > 3 {
		return 3
	}
	return n
}

// resolveCatalog loads the catalog document and selects the configured
// product, degrading stepwise to built-in defaults.
func resolveCatalog(path, productKey string) (Persona, Product) {
	persona := DefaultPersona()
	product := DefaultProduct()

	if path == "" {
		slog.Info("config: no catalog configured, using built-in product",
			"product", product.Name)
		return persona, product
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		slog.Warn("config: catalog unusable, using built-in product",
			"path", path, "err", err)
		return persona, product
	}

	if catalog.Persona != nil {
		persona = *catalog.Persona
	}

	key := productKey
	if key == "" {
		key = catalog.DefaultProduct
	}
	if p, ok := catalog.Products[key]; ok {
		product = p
		slog.Info("config: product selected from catalog", "key", key, "product", product.Name)
	} else {
		slog.Warn("config: product key not in catalog, using built-in product",
			"key", key, "path", path)
	}

	return persona, product
}
