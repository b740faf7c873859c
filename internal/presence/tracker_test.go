package presence

import (
	"encoding/json"
	"testing"

	"github.com/matheus3301/chatstore/internal/push"
)

func TestReplace(t *testing.T) {
	tr := NewTracker(nil)
	tr.Replace([]string{"u2", "me", "u1", ""})

	if !tr.IsOnline("u1") || tr.IsOnline("u3") {
		t.Errorf("IsOnline: u1=%v u3=%v, want true/false", tr.IsOnline("u1"), tr.IsOnline("u3"))
	}
	got := tr.Online()
	want := []string{"me", "u1", "u2"}
	if len(got) != len(want) {
		t.Fatalf("Online() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Online()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	tr.Replace([]string{"u3"})
	if tr.IsOnline("u1") || !tr.IsOnline("u3") {
		t.Error("Replace did not drop the previous set")
	}
}

func TestCountExcluding(t *testing.T) {
	tr := NewTracker(nil)
	tr.Replace([]string{"me", "u1", "u2"})
	if n := tr.CountExcluding("me"); n != 2 {
		t.Errorf("CountExcluding(me) = %d, want 2", n)
	}
	if n := tr.CountExcluding("ghost"); n != 3 {
		t.Errorf("CountExcluding(ghost) = %d, want 3", n)
	}
}

func TestAttach(t *testing.T) {
	em := push.NewEmitter()
	tr := NewTracker(nil)
	detach := tr.Attach(em)

	em.Emit(EventOnlineUsers, json.RawMessage(`["u1","u2"]`))
	if !tr.IsOnline("u2") {
		t.Error("u2 should be online after push")
	}

	em.Emit(EventOnlineUsers, json.RawMessage(`{"bad":true}`))
	if !tr.IsOnline("u2") {
		t.Error("undecodable update should leave the set unchanged")
	}

	detach()
	detach()
	em.Emit(EventOnlineUsers, json.RawMessage(`[]`))
	if !tr.IsOnline("u2") {
		t.Error("detached tracker still receiving updates")
	}
	if n := em.Handlers(EventOnlineUsers); n != 0 {
		t.Errorf("handlers after detach = %d, want 0", n)
	}
}
