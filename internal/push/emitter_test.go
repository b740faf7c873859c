package push

import (
	"encoding/json"
	"testing"
)

func TestEmitterDispatchesInOrder(t *testing.T) {
	e := NewEmitter()
	var got []string
	e.On("newMessage", func(data json.RawMessage) { got = append(got, "a:"+string(data)) })
	e.On("other", func(json.RawMessage) { got = append(got, "other") })
	e.On("newMessage", func(data json.RawMessage) { got = append(got, "b:"+string(data)) })

	e.Emit("newMessage", json.RawMessage(`1`))

	want := []string{"a:1", "b:1"}
	if len(got) != len(want) {
		t.Fatalf("handlers ran %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEmitterOffRemovesOnlyThatRegistration(t *testing.T) {
	e := NewEmitter()
	calls := 0
	tok := e.On("newMessage", func(json.RawMessage) { calls += 10 })
	e.On("newMessage", func(json.RawMessage) { calls++ })

	e.Off(tok)
	e.Off(tok)
	e.Off("unknown")

	e.Emit("newMessage", nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := e.Handlers("newMessage"); n != 1 {
		t.Errorf("Handlers() = %d, want 1", n)
	}
}

func TestEmitterTokensAreUnique(t *testing.T) {
	e := NewEmitter()
	h := func(json.RawMessage) {}
	a, b := e.On("x", h), e.On("x", h)
	if a == b || a == "" {
		t.Errorf("tokens %q and %q should be distinct and non-empty", a, b)
	}
}

// TestEmitterHandlerMayUnregister verifies a handler can call Off on
// itself without deadlocking.
func TestEmitterHandlerMayUnregister(t *testing.T) {
	e := NewEmitter()
	var tok Token
	calls := 0
	tok = e.On("once", func(json.RawMessage) {
		calls++
		e.Off(tok)
	})
	e.Emit("once", nil)
	e.Emit("once", nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
