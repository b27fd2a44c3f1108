package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeKV is an in-memory kv backend recording the last Set call.
type fakeKV struct {
	data    map[string]string
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.lastTTL = ttl
	return nil
}

func turns(n int) []Turn {
	out := make([]Turn, 0, n)
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		out = append(out, Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return out
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(newFakeKV(), 24, 0)

	in := []Turn{
		{Role: RoleUser, Content: "quanto custa?"},
		{Role: RoleAssistant, Content: "Sai por R$ 147 com frete grátis."},
	}
	store.Save(ctx, "5511999990000@s.whatsapp.net", in)

	got := store.Load(ctx, "5511999990000@s.whatsapp.net")
	if len(got) != len(in) {
		t.Fatalf("length: got %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, got[i], in[i])
		}
	}
}

func TestSave_CapsToMaxTurns(t *testing.T) {
	ctx := context.Background()
	store := New(newFakeKV(), 24, 0)

	store.Save(ctx, "c1", turns(40))
	got := store.Load(ctx, "c1")

	if len(got) != 24 {
		t.Fatalf("length: got %d, want 24", len(got))
	}
	// Oldest turns are dropped from the front: the first kept turn is #16.
	if got[0].Content != "turn 16" {
		t.Errorf("first kept turn: got %q, want %q", got[0].Content, "turn 16")
	}
	if got[23].Content != "turn 39" {
		t.Errorf("last kept turn: got %q, want %q", got[23].Content, "turn 39")
	}
}

func TestSave_AlreadyCappedIsNoOpOnLength(t *testing.T) {
	ctx := context.Background()
	store := New(newFakeKV(), 24, 0)

	store.Save(ctx, "c1", turns(24))
	first := store.Load(ctx, "c1")
	store.Save(ctx, "c1", first)
	second := store.Load(ctx, "c1")

	if len(second) != 24 {
		t.Fatalf("length: got %d, want 24", len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("turn %d changed across re-save: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSave_AppliesTTL(t *testing.T) {
	kv := newFakeKV()
	store := New(kv, 10, 6*time.Hour)
	store.Save(context.Background(), "c1", turns(2))
	if kv.lastTTL != 6*time.Hour {
		t.Errorf("ttl: got %v, want 6h", kv.lastTTL)
	}
}

func TestLoad_AbsentKeyReturnsEmpty(t *testing.T) {
	store := New(newFakeKV(), 10, 0)
	if got := store.Load(context.Background(), "never-seen"); len(got) != 0 {
		t.Errorf("got %d turns, want 0", len(got))
	}
}

func TestLoad_UnreachableStoreReturnsEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	store := New(kv, 10, 0)
	if got := store.Load(context.Background(), "c1"); len(got) != 0 {
		t.Errorf("got %d turns, want 0", len(got))
	}
}

func TestLoad_CorruptPayloadReturnsEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.data[keyPrefix+"c1"] = "{not json"
	store := New(kv, 10, 0)
	if got := store.Load(context.Background(), "c1"); len(got) != 0 {
		t.Errorf("got %d turns, want 0", len(got))
	}
}

func TestSave_FailureDoesNotPanic(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("connection refused")
	store := New(kv, 10, 0)
	store.Save(context.Background(), "c1", turns(2)) // must not panic
}

func TestNew_Defaults(t *testing.T) {
	store := New(newFakeKV(), 0, -time.Second)
	if store.MaxTurns() != DefaultMaxTurns {
		t.Errorf("maxTurns: got %d, want %d", store.MaxTurns(), DefaultMaxTurns)
	}
}
