package polish

import (
	"strings"

	"github.com/rivo/uniseg"
)

// emojiRanges covers the pictographic blocks that read as "an emoji" in a
// chat message. Plain text symbols ($, %, accented letters) stay untouched.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1FAFF}, // symbols, pictographs, supplemental, extended-A
	{0x1F1E6, 0x1F1FF}, // regional indicators (flags)
	{0x2600, 0x27BF},   // misc symbols + dingbats (☀, ✨, ❤, ✅)
	{0x2B00, 0x2BFF},   // stars and arrows (⭐, ⭕)
	{0xFE0F, 0xFE0F},   // emoji variation selector
}

// isEmojiCluster reports whether a grapheme cluster renders as a pictographic
// emoji. A cluster counts when any of its runes falls in a pictographic
// block, which keeps ZWJ sequences (👩‍🦰) and flag pairs as one emoji.
func isEmojiCluster(runes []rune) bool {
	for _, r := range runes {
		for _, rg := range emojiRanges {
			if r >= rg[0] && r <= rg[1] {
				return true
			}
		}
	}
	return false
}

// CountEmoji returns the number of pictographic emoji in s, counting each
// grapheme cluster once.
func CountEmoji(s string) int {
	n := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if isEmojiCluster(g.Runes()) {
			n++
		}
	}
	return n
}

// capEmoji keeps at most max pictographic emoji in s, dropping the rest in
// reading order and tidying any whitespace the removal leaves behind.
func capEmoji(s string, max int) string {
	if CountEmoji(s) <= max {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	kept := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if isEmojiCluster(g.Runes()) {
			if kept >= max {
				continue
			}
			kept++
		}
		sb.WriteString(g.Str())
	}

	// Tidy only the damage the removals can cause: doubled spaces where a
	// cluster sat between words. Newlines and other formatting stay put.
	out := sb.String()
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.TrimSpace(out)
}
