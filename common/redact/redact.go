// Package redact provides helpers for keeping API credentials out of log
// output.
//
// Secrets (the completion API key in particular) must never appear in log
// lines or HTTP status payloads. Redaction is best-effort: it operates on
// string representations and relies on callers to pass the right sensitive
// values. It is not a substitute for keeping secrets out of log call-sites
// in the first place.
package redact

import "strings"

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Preview returns a short, loggable preview of a credential: the first 7
// characters followed by an ellipsis. Enough to verify which key is loaded
// ("sk-proj" vs "sk-abc1") without disclosing it.
func Preview(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	if len(secret) <= 7 {
		return secret[:1] + "…"
	}
	return secret[:7] + "…"
}
