package environment_test

import (
	"testing"
	"time"

	"github.com/vendazap/vendazap/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_STR", "hello")
	if got := environment.StringOr("VENDAZAP_TEST_STR", "fallback"); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if got := environment.StringOr("VENDAZAP_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("got %q, want %q", got, "fallback")
	}
}

func TestFirstString(t *testing.T) {
	t.Setenv("VENDAZAP_KEY_A", "")
	t.Setenv("VENDAZAP_KEY_B", "  ")
	t.Setenv("VENDAZAP_KEY_C", ` "sk-abc123" `)
	t.Setenv("VENDAZAP_KEY_D", "sk-should-not-win")

	value, used := environment.FirstString(
		"VENDAZAP_KEY_A", "VENDAZAP_KEY_B", "VENDAZAP_KEY_C", "VENDAZAP_KEY_D",
	)
	if value != "sk-abc123" {
		t.Errorf("value: got %q, want %q", value, "sk-abc123")
	}
	if used != "VENDAZAP_KEY_C" {
		t.Errorf("usedName: got %q, want %q", used, "VENDAZAP_KEY_C")
	}
}

func TestFirstString_NoCandidate(t *testing.T) {
	value, used := environment.FirstString("VENDAZAP_NOPE_1", "VENDAZAP_NOPE_2")
	if value != "" || used != "" {
		t.Errorf("got (%q, %q), want empty pair", value, used)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{`"double quoted"`, "double quoted"},
		{`'single quoted'`, "single quoted"},
		{` " quoted and padded " `, "quoted and padded"},
		{`"`, `"`},       // lone quote is left alone
		{`"mismatch'`, `"mismatch'`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := environment.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBoolOr(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_BOOL", "true")
	if !environment.BoolOr("VENDAZAP_TEST_BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("VENDAZAP_TEST_BOOL", "garbage")
	if !environment.BoolOr("VENDAZAP_TEST_BOOL", true) {
		t.Error("unparseable value should return the default")
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_INT", "24")
	if got := environment.IntOr("VENDAZAP_TEST_INT", 5); got != 24 {
		t.Errorf("got %d, want 24", got)
	}
	if got := environment.IntOr("VENDAZAP_TEST_INT_UNSET", 5); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestFloatOr(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_FLOAT", "0.8")
	if got := environment.FloatOr("VENDAZAP_TEST_FLOAT", 0.3); got != 0.8 {
		t.Errorf("got %v, want 0.8", got)
	}
	t.Setenv("VENDAZAP_TEST_FLOAT", "not-a-number")
	if got := environment.FloatOr("VENDAZAP_TEST_FLOAT", 0.3); got != 0.3 {
		t.Errorf("got %v, want 0.3", got)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_DUR", "45s")
	if got := environment.DurationOr("VENDAZAP_TEST_DUR", time.Minute); got != 45*time.Second {
		t.Errorf("got %v, want 45s", got)
	}
	if got := environment.DurationOr("VENDAZAP_TEST_DUR_UNSET", time.Minute); got != time.Minute {
		t.Errorf("got %v, want 1m", got)
	}
}
